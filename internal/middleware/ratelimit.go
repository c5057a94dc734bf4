package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"fretus-backend/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rateLimitKeyPrefix = "fretus:ratelimit:"
	rateLimitWindow    = time.Second
)

// RateLimit caps requests per second per client using a shared Redis counter.
// Requests carrying claims (mount it after Auth) are counted per user, others per IP.
// When Redis is unreachable requests are let through.
func RateLimit(rdb *redis.Client, limitPerSec int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKeyPrefix + clientKey(r)
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("⚠️ rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, rateLimitWindow)
			}
			if ttl, _ := rdb.TTL(ctx, key).Result(); ttl < 0 {
				rdb.Expire(ctx, key, rateLimitWindow)
			}

			if count > int64(limitPerSec) {
				w.Header().Set("Retry-After", "1")
				utils.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limitPerSec))
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if claims, ok := GetUserFromContext(r); ok {
		return "user:" + claims.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
