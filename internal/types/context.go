package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxJWT           ContextKey = "ctx_jwt"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// DefaultUserID is used by scripts and background jobs acting as the system
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	HeaderSignature     = "X-Signature"
	HeaderEventType     = "X-Event-Type"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetJWT(ctx context.Context) string {
	if jwt, ok := ctx.Value(CtxJWT).(string); ok {
		return jwt
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// ValidateUserContext validates that an authenticated user is present in the context
func ValidateUserContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}
	if GetUserID(ctx) == "" {
		return fmt.Errorf("no user found in context")
	}
	return nil
}

// DetachedContext copies request scoped values into a fresh background context so
// that work outliving the request keeps its correlation ids.
func DetachedContext(ctx context.Context) context.Context {
	out := context.Background()
	if userID := GetUserID(ctx); userID != "" {
		out = SetUserID(out, userID)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		out = SetRequestID(out, requestID)
	}
	return out
}
