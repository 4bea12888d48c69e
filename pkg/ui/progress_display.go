package ui

import (
	"fmt"
	"sync"

	"rewardsreceipts/pkg/syncer"
)

var _ syncer.Reporter = (*ProgressDisplay)(nil)

// ProgressDisplay prints sync progress one line per event
type ProgressDisplay struct {
	mu     sync.Mutex
	groups int
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay() *ProgressDisplay {
	return &ProgressDisplay{}
}

// GroupStarted announces a feed group
func (p *ProgressDisplay) GroupStarted(groupID, title string, items int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.groups++
	if quiet {
		return
	}
	label := fmt.Sprintf("%d items", items)
	if title != "" {
		label = title + ", " + label
	}
	fmt.Fprintf(output, "%s %s %s\n",
		Magenta(fmt.Sprintf("[GROUP %d]", p.groups)),
		Cyan(groupID),
		Dim("("+label+")"),
	)
}

// GroupFailed reports a group that could not be stored
func (p *ProgressDisplay) GroupFailed(groupID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(output, "  %s %s: %v\n", Red("[GROUP FAILED]"), groupID, err)
}

// ItemSkipped reports an item that needs no download
func (p *ProgressDisplay) ItemSkipped(itemID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if quiet {
		return
	}
	fmt.Fprintf(output, "  %s %s %s\n", Dim("[SKIP]"), itemID, Dim("("+reason+")"))
}

// DownloadStarted reports the start of a receipt download
func (p *ProgressDisplay) DownloadStarted(itemID, filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if quiet {
		return
	}
	fmt.Fprintf(output, "  %s %s -> %s\n", Green("[DOWNLOAD]"), itemID, filename)
}

// ItemFailed reports a receipt that could not be synced
func (p *ProgressDisplay) ItemFailed(itemID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(output, "  %s %s: %v\n", Red("[FAILED]"), itemID, err)
}
