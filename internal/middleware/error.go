package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/medifast/claims-api/internal/handler"
)

// ErrorHandler drains errors attached with c.Error after the handler
// chain ran. Handlers normally respond themselves; this is the net for
// errors that were recorded but never answered.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		status := http.StatusInternalServerError
		if coded, ok := lastErr.Err.(interface{ StatusCode() int }); ok {
			status = coded.StatusCode()
		}
		c.JSON(status, handler.NewErrorResponse(lastErr.Error()))
	}
}
