package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rookgm/bundlehub/internal/models"
	"go.uber.org/zap"
)

// Limiter admits or rejects request of client key
type Limiter interface {
	Allow(key string) (bool, time.Time)
}

type rateLimitResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
}

// RateLimit rejects requests over the limit with 429 and Retry-After header.
// Clients are keyed by remote address, run behind chi RealIP to honour proxy headers.
func RateLimit(l Limiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			ok, reset := l.Allow(key)
			if !ok {
				retry := int(math.Ceil(time.Until(reset).Seconds()))
				if retry < 1 {
					retry = 1
				}
				logger.Debug("too many request", zap.String("client", key), zap.Int("retry-after", retry))

				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(rateLimitResponse{
					Message:    models.ErrRateLimited.Error(),
					StatusCode: http.StatusTooManyRequests,
					Code:       "RATE_LIMITED",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
