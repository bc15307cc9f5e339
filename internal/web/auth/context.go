package auth

import "context"

type contextKey int

const (
	currentUserKey contextKey = iota
	rolesKey
)

// GetCurrentUser retrieves the authenticated user ID from ctx, or ""
// if none was set (anonymous requests to routes that don't require
// auth).
func GetCurrentUser(ctx context.Context) string {
	v, _ := ctx.Value(currentUserKey).(string)
	return v
}

// GetUserID is an alias for GetCurrentUser kept for call sites that
// read better asking for an ID than a "user".
func GetUserID(ctx context.Context) string {
	return GetCurrentUser(ctx)
}

// SetCurrentUser returns a copy of ctx carrying userID, as the JWT
// middleware does once it has validated a request's bearer token.
func SetCurrentUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, currentUserKey, userID)
}

// GetRoles retrieves the authenticated user's roles from ctx, or nil
// if none were set.
func GetRoles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey).([]string)
	return v
}

// SetRoles returns a copy of ctx carrying roles.
func SetRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}
