package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"squashfeature/internal/apikey"
)

type contextKey string

const (
	projectIDKey contextKey = "projectID"
	adminKey     contextKey = "adminSubject"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderProjectID = "X-Project-Id"
)

// KeyResolver maps an API key to its project id.
type KeyResolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// APIKeyAuth authenticates requests by API key, taken from X-API-Key or a
// Bearer Authorization header, and stores the resolved project id in the
// request context.
func APIKeyAuth(resolver KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ExtractAPIKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "API key required")
				return
			}

			projectID, err := resolver.Resolve(r.Context(), key)
			if err != nil {
				if errors.Is(err, apikey.ErrInvalidKey) {
					writeError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				log.Printf("[Auth] key lookup failed: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), projectIDKey, projectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// GetProjectID returns the project id APIKeyAuth resolved, or "".
func GetProjectID(ctx context.Context) string {
	projectID, _ := ctx.Value(projectIDKey).(string)
	return projectID
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Printf("[HTTP] failed to encode response: %v", err)
	}
}
