package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyOperator  contextKey = "operator_id"
	ctxKeyEmail     contextKey = "operator_email"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetOperatorContext stores the authenticated operator in context.
func SetOperatorContext(ctx context.Context, operatorID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyOperator, operatorID)
	ctx = context.WithValue(ctx, ctxKeyEmail, email)
	return ctx
}

// GetOperatorID extracts the operator id from context.
func GetOperatorID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOperator).(string); ok {
		return v
	}
	return ""
}

// GetOperatorEmail extracts the operator email from context.
func GetOperatorEmail(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyEmail).(string); ok {
		return v
	}
	return ""
}
