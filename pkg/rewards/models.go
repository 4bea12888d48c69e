package rewards

// RewardsActivity is one page of the activity feed
type RewardsActivity struct {
	Groups []ActivityGroup `json:"groups"`
	// NextPageToken is nil on the last page
	NextPageToken *string `json:"nextPageToken"`
}

// NextCursor returns the cursor of the following page. An absent or empty
// token means the feed is exhausted.
func (a RewardsActivity) NextCursor() (string, bool) {
	if a.NextPageToken == nil || *a.NextPageToken == "" {
		return "", false
	}
	return *a.NextPageToken, true
}

// ActivityGroup is a titled group of feed items. The feed asks only for
// RewardsActivityFeedGroup members; other union members decode with an
// empty ID.
type ActivityGroup struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Item is a single feed entry, optionally backed by a receipt
type Item struct {
	ID      string       `json:"id"`
	Receipt *ItemReceipt `json:"receipt"`
}

// ItemReceipt references the receipt of an item
type ItemReceipt struct {
	ReceiptID string `json:"receiptId"`
}

// ReceiptDetails holds what is needed to download one receipt
type ReceiptDetails struct {
	Download ReceiptDownload `json:"download"`
}

// ReceiptDownload names the receipt file and where to fetch it from
type ReceiptDownload struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type feedResponse struct {
	Feed struct {
		List RewardsActivity `json:"list"`
	} `json:"rtlRewardsActivityFeed"`
}

type receiptDetailsResponse struct {
	ReceiptDetails ReceiptDetails `json:"receiptDetails"`
}
