package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/medidocs/backend/internal/cache"
)

// RateLimiter throttles per client IP with fixed windows counted in redis,
// so the limit holds across api replicas.
type RateLimiter struct {
	cache  *cache.Cache
	limit  int64
	window time.Duration
}

func NewRateLimiter(c *cache.Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{cache: c, limit: int64(limit), window: window}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s:%d", r.RemoteAddr, time.Now().Unix()/int64(rl.window.Seconds()))

		count, err := rl.cache.IncrementWindow(r.Context(), key, rl.window)
		if err != nil {
			// Redis down must not take the API with it.
			next.ServeHTTP(w, r)
			return
		}

		if count > rl.limit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
