package backend

import "context"

type contextKey string

const authTokenKey contextKey = "backendAuthToken"

// WithAuthToken stores the caller's bearer token in the context so outbound
// backend requests can carry it verbatim. Authentication itself is the
// backend's responsibility; this service only forwards credentials.
func WithAuthToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, authTokenKey, token)
}

func authTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(authTokenKey).(string)
	return token
}
