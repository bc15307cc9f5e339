package gateway

import (
	"net/http"
	"strings"

	"github.com/aro-lang/aro/internal/web/auth"
)

// requireBearerToken validates the Authorization: Bearer <token> header
// against s.auth, then stores the token's user ID and roles claims in
// the request context for downstream handlers and requirePermission.
func (s *Server) requireBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, prefix)

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, _ := claims["user_id"].(string)
		ctx := auth.SetCurrentUser(r.Context(), userID)
		ctx = auth.SetRoles(ctx, rolesFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func rolesFromClaims(claims map[string]any) []string {
	raw, _ := claims["roles"].([]any)
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// requirePermission rejects the request with 403 unless the caller's
// roles (set by requireBearerToken) include permission.
func (s *Server) requirePermission(permission auth.RBACPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := auth.GetRoles(r.Context())
			if !auth.UserHasPermission(roles, permission) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
