package auth

import "context"

type contextKey string

const sessionEmailKey contextKey = "session_email"

// WithEmail attaches the authenticated customer email to ctx.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, sessionEmailKey, email)
}

func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(sessionEmailKey).(string)
	return email, ok && email != ""
}
