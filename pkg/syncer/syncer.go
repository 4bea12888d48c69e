package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ubuntu/decorate"

	errs "rewardsreceipts/pkg/errors"
	"rewardsreceipts/pkg/logger"
	"rewardsreceipts/pkg/metrics"
	"rewardsreceipts/pkg/retry"
	"rewardsreceipts/pkg/rewards"
	"rewardsreceipts/pkg/storage"
)

// Skip reasons reported for items that are not downloaded
const (
	ReasonNoReceipt = "no receipt"
	ReasonExisting  = "already downloaded"
)

// ItemFailure describes one item that could not be synced
type ItemFailure struct {
	GroupID   string
	ItemID    string
	ReceiptID string
	Err       error
}

// Stats summarises a run
type Stats struct {
	Pages            int
	Groups           int
	GroupsFailed     int
	Items            int
	Downloaded       int
	SkippedExisting  int
	SkippedNoReceipt int
	Failed           int
	Bytes            int64
	Failures         []ItemFailure
	Duration         time.Duration
}

// Fields returns the stats as structured log fields
func (s *Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"pages":              s.Pages,
		"groups":             s.Groups,
		"groups_failed":      s.GroupsFailed,
		"items":              s.Items,
		"downloaded":         s.Downloaded,
		"skipped_existing":   s.SkippedExisting,
		"skipped_no_receipt": s.SkippedNoReceipt,
		"failed":             s.Failed,
		"bytes":              s.Bytes,
	}
}

// Syncer mirrors the activity feed's receipts into the output directory
type Syncer struct {
	client   RewardsClient
	storage  *storage.Manager
	retrier  *retry.Retrier
	metrics  *metrics.Recorder
	reporter Reporter
	logger   logger.Logger
	runID    string
}

// Option configures a Syncer
type Option func(*Syncer)

// WithRetrier sets the per-item retry policy for resolve and download calls
func WithRetrier(r *retry.Retrier) Option {
	return func(s *Syncer) { s.retrier = r }
}

// WithMetrics records run metrics into m
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Syncer) { s.metrics = m }
}

// WithReporter sends progress to r
func WithReporter(r Reporter) Option {
	return func(s *Syncer) { s.reporter = r }
}

// WithLogger sets the syncer logger
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(s *Syncer) { s.runID = id }
}

// New creates a Syncer
func New(client RewardsClient, store *storage.Manager, opts ...Option) *Syncer {
	s := &Syncer{
		client:   client,
		storage:  store,
		reporter: nopReporter{},
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	s.logger = s.logger.WithField("run_id", s.runID)
	if s.retrier != nil {
		s.retrier = s.retrier.WithLogger(s.logger)
	}
	return s
}

// RunID returns the id attached to every log entry of this syncer
func (s *Syncer) RunID() string {
	return s.runID
}

// Run walks the feed from the first page to the last. A failed page fetch
// ends the run with an error; failures of single items are recorded in the
// returned stats and the walk continues.
func (s *Syncer) Run(ctx context.Context) (stats *Stats, err error) {
	defer decorate.OnError(&err, "sync run %s", s.runID)

	start := time.Now()
	stats = &Stats{}
	defer func() {
		stats.Duration = time.Since(start)
		s.metrics.RunFinished(time.Now(), err == nil)
	}()

	s.logger.InfoWithFields("Starting sync", map[string]interface{}{
		"output_dir": s.storage.GetOutputDir(),
	})

	stream := rewards.NewActivityStream(s.client)
	for page, fetchErr := range stream.Pages(ctx) {
		if fetchErr != nil {
			s.logger.WithError(fetchErr).ErrorWithFields("Feed page fetch failed", map[string]interface{}{
				"pages_fetched": stats.Pages,
				"error_type":    string(errs.TypeOf(fetchErr)),
			})
			return stats, fetchErr
		}

		stats.Pages++
		s.metrics.PageFetched()
		s.logger.DebugWithFields("Processing feed page", map[string]interface{}{
			"page":   stats.Pages,
			"groups": len(page.Value.Groups),
		})

		for _, group := range page.Value.Groups {
			s.syncGroup(ctx, group, stats)
		}
	}

	s.logger.InfoWithFields("Activity stream exhausted", map[string]interface{}{
		"pages": stats.Pages,
	})
	return stats, nil
}

func (s *Syncer) syncGroup(ctx context.Context, group rewards.ActivityGroup, stats *Stats) {
	if group.ID == "" {
		// Union members other than RewardsActivityFeedGroup
		s.logger.Debug("Skipping feed group without id")
		return
	}

	log := s.logger.WithField("group_id", group.ID)
	log.InfoWithFields("Syncing group", map[string]interface{}{
		"title": group.Title,
		"items": len(group.Items),
	})
	s.reporter.GroupStarted(group.ID, group.Title, len(group.Items))

	dir, err := s.storage.EnsureGroupDir(group.ID)
	if err != nil {
		log.WithError(err).Error("Skipping group, directory unavailable")
		stats.GroupsFailed++
		s.metrics.Group(metrics.GroupFailed)
		s.reporter.GroupFailed(group.ID, err)
		return
	}

	stats.Groups++
	for _, item := range group.Items {
		s.syncItem(ctx, log, dir, group.ID, item, stats)
	}
	s.metrics.Group(metrics.GroupSynced)
}

func (s *Syncer) syncItem(ctx context.Context, log logger.Logger, dir, groupID string, item rewards.Item, stats *Stats) {
	stats.Items++
	log = log.WithField("item_id", item.ID)

	if item.Receipt == nil {
		log.Info("Item has no receipt, skipping")
		stats.SkippedNoReceipt++
		s.metrics.Item(metrics.OutcomeSkippedNoReceipt)
		s.reporter.ItemSkipped(item.ID, ReasonNoReceipt)
		return
	}

	receiptID := item.Receipt.ReceiptID
	log = log.WithField("receipt_id", receiptID)
	fail := func(err error) {
		log.WithError(err).ErrorWithFields("Receipt sync failed", map[string]interface{}{
			"error_type": string(errs.TypeOf(err)),
		})
		stats.Failed++
		stats.Failures = append(stats.Failures, ItemFailure{
			GroupID:   groupID,
			ItemID:    item.ID,
			ReceiptID: receiptID,
			Err:       err,
		})
		s.metrics.Item(metrics.OutcomeFailed)
		s.reporter.ItemFailed(item.ID, err)
	}

	receipt, err := retry.Attempt(ctx, s.retrier, func() (*rewards.Receipt, error) {
		return s.client.ResolveReceipt(ctx, receiptID)
	})
	if err != nil {
		fail(err)
		return
	}

	download := receipt.Value.Download
	binPath, jsonPath, err := storage.ReceiptPaths(dir, download.Filename)
	if err != nil {
		fail(err)
		return
	}

	if s.storage.IsComplete(binPath, jsonPath) {
		log.InfoWithFields("Receipt already downloaded, skipping", map[string]interface{}{
			"path": binPath,
		})
		stats.SkippedExisting++
		s.metrics.Item(metrics.OutcomeSkippedExisting)
		s.reporter.ItemSkipped(item.ID, ReasonExisting)
		return
	}

	log.InfoWithFields("Downloading receipt", map[string]interface{}{
		"filename": download.Filename,
	})
	s.reporter.DownloadStarted(item.ID, download.Filename)

	n, err := retry.Attempt(ctx, s.retrier, func() (int64, error) {
		return s.client.DownloadReceipt(ctx, download.URL, binPath)
	})
	if err != nil {
		fail(err)
		return
	}

	// The sidecar follows a successful download so a failed download never
	// leaves a lone sidecar behind
	if err := s.storage.WriteSidecar(jsonPath, receipt.Source); err != nil {
		fail(err)
		return
	}

	stats.Downloaded++
	stats.Bytes += n
	s.metrics.Item(metrics.OutcomeDownloaded)
	s.metrics.Downloaded(n)
	log.DebugWithFields("Receipt stored", map[string]interface{}{
		"path":  binPath,
		"bytes": n,
	})
}
