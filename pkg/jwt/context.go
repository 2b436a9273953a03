package jwt

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var (
	tokenContextKey    = &contextKey{name: "jwt"}
	merchantContextKey = &contextKey{name: "jwt_merchant_id"}
)

// SetToken stores the raw token string in the context.
func SetToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken returns the raw token string from the context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// SetMerchantID stores the authenticated merchant id in the context.
func SetMerchantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, merchantContextKey, id)
}

// MerchantIDFromContext returns the authenticated merchant id. The second
// return value is false when the auth middleware did not run.
func MerchantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(merchantContextKey).(uuid.UUID)
	return id, ok
}
