package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rbhandari/attira-backend/pkg/logger"
	pkgredis "github.com/rbhandari/attira-backend/pkg/redis"
	"github.com/rbhandari/attira-backend/pkg/types"
)

// RateLimit caps requests per endpoint over a fixed window, counted in redis
// so the limit holds across replicas. Redis outages fail open: dropping a
// webhook is worse than letting a burst through.
func RateLimit(store pkgredis.CounterStore, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || limit <= 0 || window <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			bucket := time.Now().UTC().Unix() / int64(window.Seconds())
			key := store.CounterKey(fmt.Sprintf("rate:%s:%d", r.URL.Path, bucket))

			count, err := store.IncrWithTTL(r.Context(), key, window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit counter unavailable, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				writeRateLimited(w, window)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{
		Error: types.APIError{
			Code:    "RATE_LIMITED",
			Message: "too many requests",
		},
	})
}
