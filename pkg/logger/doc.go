// Package logger provides the structured logging interface used across
// rewardsreceipts.
//
// It wraps zerolog. Console output is colorized for humans; JSON output is
// one object per line for log shippers. Every entry carries app=rewardsreceipts,
// and the sync run adds its run_id.
//
//	log, err := logger.New(&cfg.Logging)
//	log = log.WithField("run_id", runID)
//	log.InfoWithFields("Receipt downloaded", map[string]interface{}{
//	    "item_id": item.ID,
//	    "bytes":   n,
//	})
//
// Tests use NewTestLogger to capture entries, or NewNopLogger to discard them.
package logger
