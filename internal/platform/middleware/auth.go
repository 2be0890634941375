package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"bioport/pkg/requestcontext"
)

// TokenValidator defines the interface for validating editor tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*EditorClaims, error)
}

// EditorClaims represents the claims we expect from the token validator.
type EditorClaims struct {
	Editor string
}

// RequireEditor guards mutating routes: every identify, split, or save
// must be attributable to an authenticated editor.
func RequireEditor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := requestcontext.WithEditor(r.Context(), claims.Editor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
