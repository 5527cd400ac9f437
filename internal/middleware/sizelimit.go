package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medifast/claims-api/internal/handler"
)

// SizeLimitConfig caps request sizes. Multipart uploads (claim
// documents) get the larger limit; everything else is JSON and stays
// small.
type SizeLimitConfig struct {
	MaxBodySize   int64
	MaxUploadSize int64
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   1 << 20,  // 1MB
		MaxUploadSize: 10 << 20, // 10MB
	}
}

// SizeLimit rejects oversized requests up front and wraps the body so
// chunked requests cannot slip past the Content-Length check.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := config.MaxBodySize
		if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			limit = config.MaxUploadSize
		}

		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse("request body too large"))
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
