package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatroom-service/internal/observability"
)

const RequestIDKey = "request_id"

// RequestID assigns every request an id, echoes it in X-Request-ID and
// carries it on the request context for broker headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
