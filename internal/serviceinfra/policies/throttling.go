package policies

import (
	"context"
	"net/http"
	"time"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
)

// NewThrottlingPolicy rejects requests once more than maxRequestsPerSecond
// have been seen in the current one-second window. This is defensive
// infrastructure against a runaway agent, not the quota/billing system
// spec.md's Non-goals explicitly exclude.
func NewThrottlingPolicy(maxRequestsPerSecond int64) si.Policy {
	requestsPerSecond := newRateCounter(time.Second)
	return func(ctx context.Context, r *si.ReqRes) error {
		if requestsPerSecond.Rate() >= maxRequestsPerSecond {
			return r.Error(http.StatusTooManyRequests, "TooManyRequests", "too many requests")
		}
		requestsPerSecond.Add(1)
		return r.Next(ctx)
	}
}
