package core

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"outreach/internal/types"
)

// AdminAuthMiddleware requires "Authorization: Bearer <ADMIN_API_KEY>".
// With no key configured it passes through (local only; see NewServer).
func (s *Server) AdminAuthMiddleware(next http.Handler) http.Handler {
	want := []byte(s.AdminAPIKey.Unmask())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(want) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authorization header is required", nil))
			return
		}
		token := extractBearerToken(header)
		if token == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Bearer token is required", nil))
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			s.Logger.WarnContext(r.Context(), "authentication failed: invalid admin key",
				"method", r.Method,
				"path", r.URL.Path,
			)
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid authentication token", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken returns the token of a "Bearer <token>" header; the
// scheme is matched case-insensitively.
func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
