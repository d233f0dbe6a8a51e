package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const multipartOverhead = 8 * 1024

// SizeLimit caps the request body, mainly for resume uploads. Oversized
// bodies surface as http.MaxBytesError, which gin turns into a 413.
func SizeLimit(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBodyBytes + multipartOverhead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
