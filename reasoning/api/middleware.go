package api

import (
	"net/http"

	"github.com/BaSui01/agentflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QPSGuard is a coarse inbound requests/sec cap ahead of the reasoning
// engines, independent of reasoning/ratelimit's per-(provider,model)
// token-bucket/fixed-window limiter: this one protects the process from
// being overwhelmed by request volume regardless of which model a
// request targets, the same shape a reverse proxy's rate limit plays
// for cmd/agentflow's other handlers.
func QPSGuard(qps float64, burst int, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Limit(qps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeEngineError(w, types.NewError(types.ErrRateLimitExceeded, "too many requests, slow down").WithHTTPStatus(429), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
