package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardsreceipts/pkg/config"
	errs "rewardsreceipts/pkg/errors"
	"rewardsreceipts/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newTestServer(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient("test-token",
		WithEndpoints(Endpoints{
			GraphQL:  server.URL + "/graphql",
			Details:  server.URL + "/details",
			Download: server.URL + "/details/download",
		}),
		WithLogger(logger.NewTestLogger()),
	)
	require.NoError(t, err)
	return client, server
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestNewClientRequiresToken(t *testing.T) {
	client, err := NewClient("")
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestClientSendsIdentificationHeaders(t *testing.T) {
	var got http.Header
	mux := http.NewServeMux()
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"data":{"receiptDetails":{"download":{"filename":"a.pdf","url":"u"}}}}`))
	})
	client, _ := newTestServer(t, mux)

	_, err := client.ResolveReceipt(context.Background(), "R1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, ClientID, got.Get("client_id"))
	assert.Equal(t, APIVersion, got.Get("api-version"))
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "application/json;charset=UTF-8", got.Get("Content-Type"))
}

func TestNewClientFromConfig(t *testing.T) {
	var got http.Header
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"data":{"rtlRewardsActivityFeed":{"list":{"groups":[],"nextPageToken":null}}}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.API.GraphQLURL = server.URL + "/graphql"
	cfg.API.UserAgent = "custom-agent"
	cfg.API.APIVersion = "3"
	cfg.Download.Timeout = 5 * time.Second

	client, err := NewClientFromConfig(cfg, "cfg-token", logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Nil(t, client.limiter)

	_, err = client.FetchPage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer cfg-token", got.Get("Authorization"))
	assert.Equal(t, "custom-agent", got.Get("User-Agent"))
	assert.Equal(t, "3", got.Get("api-version"))
}

func TestFetchPageFirstPageSentinel(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		query = decodeBody(t, r)["query"]
		w.Write([]byte(`{"data": {"rtlRewardsActivityFeed": {"list": {
			"groups": [{"id": "G1", "title": "This Month", "items": [
				{"id": "I1", "receipt": {"receiptId": "R1"}},
				{"id": "I2", "receipt": null}
			]}],
			"nextPageToken": "P2"
		}}}}`))
	})
	client, _ := newTestServer(t, mux)

	page, err := client.FetchPage(context.Background(), "")
	require.NoError(t, err)

	assert.Contains(t, query, `rtlRewardsActivityFeed(pageToken: "FIRST_PAGE")`)
	require.Len(t, page.Value.Groups, 1)
	group := page.Value.Groups[0]
	assert.Equal(t, "G1", group.ID)
	assert.Equal(t, "This Month", group.Title)
	require.Len(t, group.Items, 2)
	assert.Equal(t, "R1", group.Items[0].Receipt.ReceiptID)
	assert.Nil(t, group.Items[1].Receipt)

	next, ok := page.Value.NextCursor()
	assert.True(t, ok)
	assert.Equal(t, "P2", next)
	assert.True(t, strings.HasPrefix(string(page.Source), `{"rtlRewardsActivityFeed":`))
}

func TestFetchPageCursorIsOpaque(t *testing.T) {
	cursor := `abc"} evil { x(y: "z`
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		query = decodeBody(t, r)["query"]
		w.Write([]byte(`{"data": {"rtlRewardsActivityFeed": {"list": {"groups": []}}}}`))
	})
	client, _ := newTestServer(t, mux)

	page, err := client.FetchPage(context.Background(), cursor)
	require.NoError(t, err)
	assert.Contains(t, query, `pageToken: "abc\"} evil { x(y: \"z")`)

	_, ok := page.Value.NextCursor()
	assert.False(t, ok)
}

func TestFetchPageAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"data": null, "errors": [{"code":"AUTH","message":"bad token","status":401}]}`))
	})
	client, _ := newTestServer(t, mux)

	_, err := client.FetchPage(context.Background(), "P7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `feed page "P7"`)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.ErrorTypeAPI, e.Type)
	assert.Len(t, e.APIErrors, 1)
}

func TestNetworkFailure(t *testing.T) {
	client, err := NewClient("token",
		WithHTTPClient(&http.Client{Transport: &mockRoundTripper{
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		}}),
		WithLogger(logger.NewNopLogger()),
	)
	require.NoError(t, err)

	_, err = client.FetchPage(context.Background(), "")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))

	_, err = client.ResolveReceipt(context.Background(), "R1")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))

	path := filepath.Join(t.TempDir(), "r.pdf")
	_, err = client.DownloadReceipt(context.Background(), "http://x/r", path)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.NoFileExists(t, path)
}

func TestClientSendsOneRequestPerCall(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`upstream unavailable`))
	})
	client, _ := newTestServer(t, mux)

	_, err := client.FetchPage(context.Background(), "")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
	assert.Equal(t, 1, calls)
}

func TestResolveReceipt(t *testing.T) {
	var key string
	mux := http.NewServeMux()
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		key = decodeBody(t, r)["receiptKey"]
		w.Write([]byte(`{"data": {"receiptDetails": {"download": {"filename": "rcpt.pdf", "url": "http://x/rcpt"}}}, "errors": null}`))
	})
	client, _ := newTestServer(t, mux)

	receipt, err := client.ResolveReceipt(context.Background(), "R1")
	require.NoError(t, err)

	assert.Equal(t, "R1", key)
	assert.Equal(t, "rcpt.pdf", receipt.Value.Download.Filename)
	assert.Equal(t, "http://x/rcpt", receipt.Value.Download.URL)
	assert.Equal(t, `{"receiptDetails":{"download":{"filename":"rcpt.pdf","url":"http://x/rcpt"}}}`, string(receipt.Source))
}

func TestResolveReceiptUnknownEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null, "errors": null}`))
	})
	client, _ := newTestServer(t, mux)

	_, err := client.ResolveReceipt(context.Background(), "R404")
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.ErrorTypeUnknown, e.Type)
	assert.Equal(t, `{"data": null, "errors": null}`, e.Body)
	assert.Contains(t, err.Error(), "R404")
}

func TestDownloadReceiptWritesBody(t *testing.T) {
	var downloadURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/details/download", func(w http.ResponseWriter, r *http.Request) {
		downloadURL = decodeBody(t, r)["downloadUrl"]
		w.Write([]byte("%PDF-1.4 receipt"))
	})
	client, _ := newTestServer(t, mux)

	path := filepath.Join(t.TempDir(), "rcpt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer"), 0644))

	n, err := client.DownloadReceipt(context.Background(), "http://x/rcpt", path)
	require.NoError(t, err)
	assert.Equal(t, "http://x/rcpt", downloadURL)
	assert.Equal(t, int64(16), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 receipt", string(data))
}

func TestDownloadReceiptRejectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/details/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "forbidden")
	})
	client, _ := newTestServer(t, mux)

	path := filepath.Join(t.TempDir(), "rcpt.pdf")
	_, err := client.DownloadReceipt(context.Background(), "http://x/rcpt", path)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.ErrorTypeNetwork, e.Type)
	assert.Equal(t, http.StatusForbidden, e.Code)
	assert.NoFileExists(t, path)
}

func TestDownloadReceiptWriteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/details/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf"))
	})
	client, _ := newTestServer(t, mux)

	path := filepath.Join(t.TempDir(), "missing-dir", "rcpt.pdf")
	_, err := client.DownloadReceipt(context.Background(), "http://x/rcpt", path)
	assert.True(t, errs.IsType(err, errs.ErrorTypeIO))
}

type countingLimiter struct {
	waits int
	err   error
}

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Reset()      {}
func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return l.err
}

func TestLimiterPacesEveryRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"receiptDetails":{"download":{"filename":"a.pdf","url":"u"}}}}`))
	})
	client, _ := newTestServer(t, mux)
	limiter := &countingLimiter{}
	client.limiter = limiter

	for i := 0; i < 3; i++ {
		_, err := client.ResolveReceipt(context.Background(), "R")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, limiter.waits)

	limiter.err = context.Canceled
	_, err := client.ResolveReceipt(context.Background(), "R")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildFeedQuery(t *testing.T) {
	q := BuildFeedQuery(FirstPageToken)
	assert.Equal(t,
		`query RewardsActivityFeed { rtlRewardsActivityFeed(pageToken: "FIRST_PAGE") { list { groups { ... on RewardsActivityFeedGroup { id title items { id receipt { receiptId } } } } nextPageToken } } }`,
		q)
}
