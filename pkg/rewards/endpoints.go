package rewards

import (
	"encoding/json"
	"fmt"
)

// Backend endpoints
const (
	GraphQLURL  = "https://apigee-prod.api-wr.com/wx/v1/bff/graphql"
	DetailsURL  = "https://api.woolworthsrewards.com.au/wx/v1/rewards/member/ereceipts/transactions/details"
	DownloadURL = DetailsURL + "/download"
)

// Identification headers expected by the backend
const (
	ClientID         = "8h41mMOiDULmlLT28xKSv5ITpp3XBRvH"
	APIVersion       = "2"
	DefaultUserAgent = "rewardsreceipts (Everyday Rewards receipts downloader)"
	ContentType      = "application/json;charset=UTF-8"
)

// FirstPageToken is the cursor the backend understands as "start of feed"
const FirstPageToken = "FIRST_PAGE"

const feedQueryTemplate = `query RewardsActivityFeed { rtlRewardsActivityFeed(pageToken: %s) { list { groups { ... on RewardsActivityFeedGroup { id title items { id receipt { receiptId } } } } nextPageToken } } }`

// Endpoints groups the three URLs the client talks to
type Endpoints struct {
	GraphQL  string
	Details  string
	Download string
}

// DefaultEndpoints returns the production endpoints
func DefaultEndpoints() Endpoints {
	return Endpoints{
		GraphQL:  GraphQLURL,
		Details:  DetailsURL,
		Download: DownloadURL,
	}
}

// BuildFeedQuery returns the GraphQL document for the page at cursor.
// The cursor is embedded as an escaped string literal and never interpreted.
func BuildFeedQuery(cursor string) string {
	literal, _ := json.Marshal(cursor)
	return fmt.Sprintf(feedQueryTemplate, literal)
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type receiptDetailsRequest struct {
	ReceiptKey string `json:"receiptKey"`
}

type receiptDownloadRequest struct {
	DownloadURL string `json:"downloadUrl"`
}
