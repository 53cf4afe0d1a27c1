package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"squashfeature/internal/adminauth"
)

// JWTAuth guards the admin routes with an HS256 bearer token.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := adminauth.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				log.Printf("[Auth] rejected admin token on %s: %v", r.URL.Path, err)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetAdminSubject(ctx context.Context) string {
	subject, _ := ctx.Value(adminKey).(string)
	return subject
}
