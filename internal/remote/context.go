package remote

import "context"

type contextKey string

const userKey contextKey = "notiondev.remote.user"

// WithUser binds a resolved user to the request context. Each MCP request
// carries its own context, so concurrent requests from different users
// never observe each other's identity.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user bound to the context, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey).(*User)
	return user
}
