package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Server is the configuration of the feedback API server.
type Server struct {
	Port           string
	MongoURI       string
	DBName         string
	AllowedOrigins []string
	AdminJWTSecret string

	RedisURL    string
	KeyCacheTTL time.Duration

	ResendAPIKey string
	FromEmail    string
	NotifyEmail  string
}

// AdminEnabled reports whether the JWT protected admin routes are mounted.
func (s Server) AdminEnabled() bool {
	return s.AdminJWTSecret != ""
}

func LoadServer(getenv func(string) string) (Server, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Server{
		Port:           get("PORT", "8080"),
		MongoURI:       get("MONGODB_URI", ""),
		DBName:         get("DB_NAME", "squashfeature"),
		AllowedOrigins: splitList(get("ALLOWED_ORIGINS", "*")),
		AdminJWTSecret: get("ADMIN_JWT_SECRET", ""),
		RedisURL:       get("REDIS_URL", ""),
		ResendAPIKey:   get("RESEND_API_KEY", ""),
		FromEmail:      get("FROM_EMAIL", ""),
		NotifyEmail:    get("NOTIFY_EMAIL", ""),
	}

	if cfg.MongoURI == "" {
		return cfg, fmt.Errorf("%w: MONGODB_URI", ErrMissing)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return cfg, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	ttl, err := time.ParseDuration(get("KEY_CACHE_TTL", "5m"))
	if err != nil {
		return cfg, fmt.Errorf("invalid KEY_CACHE_TTL: %w", err)
	}
	cfg.KeyCacheTTL = ttl

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EmailEnabled reports whether new item notifications go out by email. Each
// item is mailed to its project's owner, or to NotifyEmail when the project
// has none.
func (s Server) EmailEnabled() bool {
	return s.ResendAPIKey != "" && s.FromEmail != ""
}
