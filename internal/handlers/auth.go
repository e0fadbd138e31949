package handlers

import (
	"context"
)

type contextKey string

// accountContextKey carries the authenticated account through the request
// context
const accountContextKey contextKey = "repono.account"

// WithAccount returns a context carrying the authenticated account
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext returns the authenticated account, or empty if the
// request did not pass the auth middleware
func AccountFromContext(ctx context.Context) string {
	if account, ok := ctx.Value(accountContextKey).(string); ok {
		return account
	}
	return ""
}
