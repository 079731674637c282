package middleware

import (
	"net/http"

	"emoney-core/pkg/apperror"
	"emoney-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body to maxBytes. A declared Content-Length
// over the limit is rejected up front; otherwise the reader fails once the
// limit is crossed and binding reports the error.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.New("PAY_002", "Request body too large", http.StatusRequestEntityTooLarge))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
