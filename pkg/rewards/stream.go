package rewards

import (
	"context"
	"errors"
	"iter"
)

// ErrStreamDone is returned by Next once the stream is exhausted
var ErrStreamDone = errors.New("activity stream exhausted")

// PageFetcher fetches one feed page by cursor
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}

type streamState int

const (
	streamActive streamState = iota
	streamExhausted
)

// ActivityStream walks the feed forward from the first page, following the
// cursor each page returns. It is single pass: once exhausted, or once a
// fetch has failed, it yields nothing more. Walking again needs a new stream.
type ActivityStream struct {
	fetcher PageFetcher
	state   streamState
	cursor  string
	fetched int
}

// NewActivityStream creates a stream positioned at the first page
func NewActivityStream(fetcher PageFetcher) *ActivityStream {
	return &ActivityStream{
		fetcher: fetcher,
		state:   streamActive,
		cursor:  FirstPageToken,
	}
}

// Next fetches the page at the current cursor. It returns ErrStreamDone
// when the stream is exhausted. A fetch failure is returned once and
// exhausts the stream.
func (s *ActivityStream) Next(ctx context.Context) (*Page, error) {
	if s.state == streamExhausted {
		return nil, ErrStreamDone
	}

	page, err := s.fetcher.FetchPage(ctx, s.cursor)
	if err != nil {
		s.state = streamExhausted
		return nil, err
	}
	if page == nil {
		s.state = streamExhausted
		return nil, errors.New("page fetcher returned no page")
	}

	s.fetched++
	if next, ok := page.Value.NextCursor(); ok {
		s.cursor = next
	} else {
		s.state = streamExhausted
	}
	return page, nil
}

// Pages adapts the stream to a range-over-func sequence. A fetch failure is
// yielded as the final element.
func (s *ActivityStream) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for {
			page, err := s.Next(ctx)
			if errors.Is(err, ErrStreamDone) {
				return
			}
			if !yield(page, err) || err != nil {
				return
			}
		}
	}
}

// Done reports whether the stream is exhausted
func (s *ActivityStream) Done() bool {
	return s.state == streamExhausted
}

// PagesFetched returns the number of pages fetched successfully so far
func (s *ActivityStream) PagesFetched() int {
	return s.fetched
}
