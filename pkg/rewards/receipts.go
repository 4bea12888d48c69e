package rewards

import (
	"context"
	"fmt"
	"net/http"
	"os"

	errs "rewardsreceipts/pkg/errors"
)

// ResolveReceipt looks up the download details of receiptID
func (c *Client) ResolveReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	resp, err := postEnvelope[receiptDetailsResponse](ctx, c, c.endpoints.Details, receiptDetailsRequest{
		ReceiptKey: receiptID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving receipt %s: %w", receiptID, err)
	}

	return &Receipt{
		Value:  resp.Value.ReceiptDetails,
		Source: resp.Source,
	}, nil
}

// DownloadReceipt fetches the binary behind downloadURL and writes it to
// path, replacing any existing file. Nothing is written unless the backend
// answers with a 2xx status.
func (c *Client) DownloadReceipt(ctx context.Context, downloadURL, path string) (int64, error) {
	body, status, err := c.post(ctx, c.endpoints.Download, receiptDownloadRequest{
		DownloadURL: downloadURL,
	})
	if err != nil {
		return 0, fmt.Errorf("downloading receipt: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return 0, errs.NewStatusError("receipt download rejected", status)
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		return 0, errs.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return int64(len(body)), nil
}
