package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	actorIDKey      = "actor_id"
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
)

// requestIDMiddleware accepts an inbound X-Request-ID or mints one, and
// echoes it on the response so callers can correlate logs and audit entries
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

// actorMiddleware resolves the acting user from the X-User-ID header.
// Authentication happens upstream; this service trusts the header the same
// way it would trust a gateway-injected principal.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(headerUserID)
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing X-User-ID header",
			})
			return
		}
		c.Set(actorIDKey, actorID)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID returns the request id resolved by the middleware
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ActorID returns the acting user id resolved by the middleware
func ActorID(c *gin.Context) string {
	return c.GetString(actorIDKey)
}
