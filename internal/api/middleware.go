package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sqewdb/sqew/internal/apperr"
)

type ctxKey int

const requestIDKey ctxKey = iota

// bearerAPIKeyAuth gates every /queues request behind X-API-Key; /health
// and /metrics are not gated. An empty secret disables the gate, matching SQEW_API_KEY's
// documented default.
func bearerAPIKeyAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-API-Key") != secret {
				sendError(w, http.StatusUnauthorized, apperr.KindInvalidArg, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// requestID stamps every request with a UUID, propagated via context and
// echoed in the X-Request-Id response header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(req.Context(), requestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// rateLimiters enforces a token-bucket cap per queue name; callers answer
// a denial with apperr.Overload (HTTP 429).
type rateLimiters struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimiters(rps float64, burst int) *rateLimiters {
	return &rateLimiters{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *rateLimiters) allow(queueName string) bool {
	r.mu.Lock()
	l, ok := r.limiters[queueName]
	if !ok {
		l = rate.NewLimiter(r.rps, r.burst)
		r.limiters[queueName] = l
	}
	r.mu.Unlock()
	return l.Allow()
}
