package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"echo-gateway/internal/services"
	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	rateLimitService *services.RateLimitService
}

func NewRateLimitMiddleware(rateLimitService *services.RateLimitService) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
	}
}

// RateLimit limits requests per user, or per client IP for anonymous
// requests. Without a backing service every request passes.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm == nil || rm.rateLimitService == nil || requests <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if userID, exists := c.Get(UserIDKey); exists {
			subject = fmt.Sprintf("user:%v", userID)
		}
		key := rm.rateLimitService.Key(subject, c.FullPath())

		allowed, err := rm.rateLimitService.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			slog.Error("Rate limit check failed", "key", key, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.NewError(response.ErrCodeInternal))
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.NewError(response.ErrCodeRateLimited).
					WithDetails(fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window)))
			return
		}

		c.Next()
	}
}
