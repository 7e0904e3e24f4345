package middleware

import (
	"github.com/ErlanBelekov/jobcore/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID assigns a request id to the request context and echoes it back
// on the response, so introspection-endpoint logs can be correlated with a
// caller's bug report.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = requestid.New()
		}
		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
