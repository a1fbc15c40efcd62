package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  30,
		window: time.Minute,
	}
}

// QueueRateLimit caps queue operations per authenticated visitor (per IP for
// anonymous calls) using a counter with a rolling expiry in Redis. With no
// Redis configured the middleware is a pass-through.
func (r *RateLimiter) QueueRateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.redis == nil {
				return next(c)
			}

			key := fmt.Sprintf("ratelimit:%s", r.identifier(c))
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()

			count, err := r.redis.Incr(ctx, key).Result()
			if err != nil {
				// Rate limiting is best-effort; never block on Redis trouble.
				return next(c)
			}
			if count == 1 {
				r.redis.Expire(ctx, key, r.window)
			}
			if count > r.limit {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
				})
			}

			return next(c)
		}
	}
}

func (r *RateLimiter) identifier(c echo.Context) string {
	if studentID, ok := c.Get("student_id").(string); ok && studentID != "" {
		return "user:" + studentID
	}
	return c.RealIP()
}
