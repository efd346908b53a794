package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its token bucket before the
// entry is pruned.
const visitorTTL = 10 * time.Minute

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter enforces a per-client token-bucket limit keyed by remote
// address. Rejected requests get 429 with a Retry-After hint. Stale
// visitor entries are pruned inline during lookups, so the middleware
// holds no background goroutine.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	var (
		mu        sync.Mutex
		visitors  = make(map[string]*visitor)
		lastPrune = time.Now()
	)

	lookup := func(addr string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if time.Since(lastPrune) > visitorTTL {
			for k, v := range visitors {
				if time.Since(v.seen) > visitorTTL {
					delete(visitors, k)
				}
			}
			lastPrune = time.Now()
		}

		v, ok := visitors[addr]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			visitors[addr] = v
		}
		v.seen = time.Now()
		return v.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := lookup(clientIP(r)).Reserve()
			if !res.OK() {
				rejectRateLimited(w, time.Second)
				return
			}
			if delay := res.Delay(); delay > 0 {
				// Granting the token would mean waiting; reject instead.
				res.Cancel()
				rejectRateLimited(w, delay)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(secs+1))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}

// clientIP keys the bucket on RemoteAddr without the port. Forwarding
// headers are ignored: they are client-controlled and would let a caller
// hop buckets at will.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
