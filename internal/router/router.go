package router

import (
	"net/http"

	"squashfeature/internal/handlers"
	customMiddleware "squashfeature/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	Feedback       *handlers.FeedbackHandler
	Admin          *handlers.AdminHandler // nil disables the admin routes
	Keys           customMiddleware.KeyResolver
	AdminSecret    string
	AllowedOrigins []string
}

func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			customMiddleware.HeaderAPIKey, customMiddleware.HeaderProjectID,
		},
		MaxAge: 300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"squashfeature"}`))
	})

	// Widget and dashboard routes (API key required)
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.APIKeyAuth(cfg.Keys))

		r.Post("/api/requests", cfg.Feedback.SubmitFeedback)
		r.Post("/api/feedback", cfg.Feedback.SubmitFeedback)
		r.Get("/api/feedback/{projectId}", cfg.Feedback.ListFeedback)

		r.Post("/api/projects/self-hosted/dashboard", cfg.Feedback.SelfHostedDashboard)
		r.Post("/api/projects/self-hosted/vote", cfg.Feedback.SelfHostedVote)
		r.Get("/api/projects/{projectId}/dashboard", cfg.Feedback.Dashboard)
		r.Post("/api/projects/{projectId}/requests/{requestId}/vote", cfg.Feedback.Vote)
	})

	// Admin routes (JWT required)
	if cfg.Admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.JWTAuth(cfg.AdminSecret))

			r.Post("/admin/projects", cfg.Admin.CreateProject)
			r.Post("/admin/projects/{projectId}/keys", cfg.Admin.IssueKey)
		})
	}

	return r
}
