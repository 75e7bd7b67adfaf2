package session

import "context"

type contextKey string

const (
	userIDKey contextKey = "session_user_id"
	tokenKey  contextKey = "session_token"
)

// WithUser returns a context carrying userID as the authenticated identity.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CurrentUser returns the authenticated identity, if any.
func CurrentUser(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

func IsAuthenticated(ctx context.Context) bool {
	_, ok := CurrentUser(ctx)
	return ok
}

// Token returns the raw session token presented with the request, whether or
// not it resolved to a user.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}
