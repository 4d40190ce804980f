package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/ratelimit"
	"github.com/lingopad/api/internal/response"
)

// RateLimit enforces a per-user limit on action. It fails open: a nil
// limiter or a counter error lets the request through.
func RateLimit(l *ratelimit.Limiter, action string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UserID(c)
		if l == nil || !ok {
			c.Next()
			return
		}

		res, err := l.Check(c.Request.Context(), strconv.FormatInt(uid, 10), action)
		if err != nil {
			log.Warn("rate limit check failed", "action", action, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
		if !res.Allowed {
			response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
