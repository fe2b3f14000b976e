package middleware

import (
	"net/http"
	"time"

	"credit-exchange/pkg/apperror"
	"credit-exchange/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAccountID carries the caller's identity. It is stamped by the
	// gateway in front of this service and treated as trusted.
	HeaderAccountID = "X-Account-ID"
	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxAccountID = "account_id"
	CtxRequestID = "request_id"
)

// AccountAuth requires a valid account UUID in the identity header and
// stores it in the request context for handlers.
func AccountAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAccountID)
		if raw == "" {
			response.Error(c, apperror.Validation("missing "+HeaderAccountID+" header"))
			c.Abort()
			return
		}
		accountID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("malformed "+HeaderAccountID+" header"))
			c.Abort()
			return
		}
		c.Set(CtxAccountID, accountID)
		c.Next()
	}
}

// AccountID retrieves the authenticated account from the request context.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequestID assigns each request an ID, honouring one supplied by the
// gateway, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
