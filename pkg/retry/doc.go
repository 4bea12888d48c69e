// Package retry provides the optional per-item retry policy used when
// resolving and downloading receipts.
//
// Only network failures are retried. Backend error lists, malformed bodies
// and local IO failures are returned after the first attempt.
//
//	policy := retry.NewPolicy(cfg.Download.RetryAttempts, cfg.Download.RetryDelay, log)
//	details, err := retry.Attempt(ctx, policy, func() (*rewards.ReceiptDetails, error) {
//		return client.ResolveReceipt(ctx, receiptID)
//	})
//
// A nil policy runs the operation exactly once.
package retry
