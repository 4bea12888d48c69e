package rewards

import (
	"context"
	"fmt"
)

// FetchPage fetches the feed page at cursor. An empty cursor requests the
// first page.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	if cursor == "" {
		cursor = FirstPageToken
	}

	resp, err := postEnvelope[feedResponse](ctx, c, c.endpoints.GraphQL, graphQLRequest{
		Query: BuildFeedQuery(cursor),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching feed page %q: %w", cursor, err)
	}

	page := &Page{
		Value:  resp.Value.Feed.List,
		Source: resp.Source,
	}
	next, _ := page.Value.NextCursor()
	c.logger.DebugWithFields("Feed page fetched", map[string]interface{}{
		"cursor": cursor,
		"groups": len(page.Value.Groups),
		"next":   next,
	})
	return page, nil
}
