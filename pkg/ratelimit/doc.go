// Package ratelimit paces requests to the rewards backend.
//
// Pacing is off by default. When rate_limit.requests_per_minute is set, the
// client waits on a sliding one-minute window before every request:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
