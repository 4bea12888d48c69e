package syncer

import (
	"context"

	"rewardsreceipts/pkg/rewards"
)

// RewardsClient defines the backend operations the syncer needs
type RewardsClient interface {
	rewards.PageFetcher
	ResolveReceipt(ctx context.Context, receiptID string) (*rewards.Receipt, error)
	DownloadReceipt(ctx context.Context, downloadURL, path string) (int64, error)
}

// Reporter receives user-visible progress as the walk happens
type Reporter interface {
	GroupStarted(groupID, title string, items int)
	GroupFailed(groupID string, err error)
	ItemSkipped(itemID, reason string)
	DownloadStarted(itemID, filename string)
	ItemFailed(itemID string, err error)
}

type nopReporter struct{}

func (nopReporter) GroupStarted(string, string, int) {}
func (nopReporter) GroupFailed(string, error)        {}
func (nopReporter) ItemSkipped(string, string)       {}
func (nopReporter) DownloadStarted(string, string)   {}
func (nopReporter) ItemFailed(string, error)         {}
