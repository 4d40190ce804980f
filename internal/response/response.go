// Package response writes the {success, message, data} envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/logger"
)

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Error maps err to its status and writes a failure envelope. Internal
// and storage failures are logged with their cause; the client only
// sees a generic message.
func Error(c *gin.Context, log *logger.Logger, err error) {
	kind := apperr.KindOf(err)
	if log != nil {
		switch kind {
		case apperr.Internal, apperr.Unavailable, apperr.Conflict:
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"kind", kind.String(),
				"error", err,
			)
		}
	}
	Abort(c, kind.Status(), apperr.PublicMessage(err))
}

// Abort writes a failure envelope with an explicit status and stops the
// handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}
