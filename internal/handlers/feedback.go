package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"squashfeature/internal/middleware"
	"squashfeature/internal/models"
	"squashfeature/internal/notify"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	notifyTimeout        = 10 * time.Second
)

type FeedbackStore interface {
	Create(ctx context.Context, item *models.FeedbackItem) error
	FindByIdempotencyKey(ctx context.Context, projectID, key string) (*models.FeedbackItem, error)
	ListByProject(ctx context.Context, projectID string) ([]models.FeedbackItem, error)
	IncrementVotes(ctx context.Context, projectID string, itemID bson.ObjectID) (int64, bool, error)
}

type ProjectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type FeedbackHandler struct {
	items    FeedbackStore
	projects ProjectFinder
	notifier notify.Notifier
}

func NewFeedbackHandler(items FeedbackStore, projects ProjectFinder, notifier notify.Notifier) *FeedbackHandler {
	return &FeedbackHandler{
		items:    items,
		projects: projects,
		notifier: notifier,
	}
}

// --- POST /api/requests ---

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	projectID := requestedProject(r)
	if !authorizedFor(w, r, projectID) {
		return
	}

	var req models.CreateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateCreate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if req.IdempotencyKey != "" {
		existing, err := h.items.FindByIdempotencyKey(r.Context(), projectID, req.IdempotencyKey)
		if err != nil {
			internalError(w, "idempotency lookup failed", err)
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, models.CreateItemResponse{Success: true, Request: existing})
			return
		}
	}

	item := &models.FeedbackItem{
		ProjectID:      projectID,
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Tags:           req.Tags,
		Metadata:       withOrigin(req.Metadata, r.Header.Get("Origin")),
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		if req.IdempotencyKey != "" && mongo.IsDuplicateKeyError(err) {
			// A concurrent retry with the same key won the insert.
			existing, findErr := h.items.FindByIdempotencyKey(r.Context(), projectID, req.IdempotencyKey)
			if findErr == nil && existing != nil {
				writeJSON(w, http.StatusOK, models.CreateItemResponse{Success: true, Request: existing})
				return
			}
		}
		internalError(w, "failed to create feedback item", err)
		return
	}

	go h.announce(projectID, item)

	writeJSON(w, http.StatusCreated, models.CreateItemResponse{Success: true, Request: item})
}

func (h *FeedbackHandler) announce(projectID string, item *models.FeedbackItem) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	name, owner := projectID, ""
	if project, err := h.projects.FindByID(ctx, projectID); err == nil && project != nil {
		name, owner = project.Name, project.OwnerEmail
	}
	if err := h.notifier.Publish(ctx, owner, notify.FormatNewItem(name, item)); err != nil {
		log.Printf("[Notify] publish failed: %v", err)
	}
}

func validateCreate(req *models.CreateItemRequest) string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	switch {
	case !req.Type.Valid():
		return "type must be \"feature\" or \"bug\""
	case req.Title == "":
		return "title is required"
	case req.Description == "":
		return "description is required"
	case utf8.RuneCountInString(req.Title) > maxTitleLength:
		return "title is too long"
	case utf8.RuneCountInString(req.Description) > maxDescriptionLength:
		return "description is too long"
	}
	return ""
}

func withOrigin(metadata map[string]any, origin string) map[string]any {
	if origin == "" {
		return metadata
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata["origin"]; !ok {
		metadata["origin"] = origin
	}
	return metadata
}

// --- GET /api/feedback/{projectId} ---

func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	if !authorizedFor(w, r, projectID) {
		return
	}

	items, err := h.items.ListByProject(r.Context(), projectID)
	if err != nil {
		internalError(w, "failed to list feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// --- GET /api/projects/{projectId}/dashboard ---

func (h *FeedbackHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, chi.URLParam(r, "projectId"))
}

// --- POST /api/projects/self-hosted/dashboard ---

func (h *FeedbackHandler) SelfHostedDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, requestedProject(r))
}

func (h *FeedbackHandler) dashboard(w http.ResponseWriter, r *http.Request, projectID string) {
	if !authorizedFor(w, r, projectID) {
		return
	}

	project, err := h.projects.FindByID(r.Context(), projectID)
	if err != nil {
		internalError(w, "failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	items, err := h.items.ListByProject(r.Context(), projectID)
	if err != nil {
		internalError(w, "failed to list feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, models.DashboardResponse{
		Project:  project.Summary(),
		Requests: items,
	})
}

// --- POST /api/projects/{projectId}/requests/{requestId}/vote ---

func (h *FeedbackHandler) Vote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, chi.URLParam(r, "projectId"), chi.URLParam(r, "requestId"))
}

// --- POST /api/projects/self-hosted/vote ---

func (h *FeedbackHandler) SelfHostedVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.vote(w, r, requestedProject(r), req.RequestID)
}

func (h *FeedbackHandler) vote(w http.ResponseWriter, r *http.Request, projectID, requestID string) {
	if !authorizedFor(w, r, projectID) {
		return
	}
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "requestId is required")
		return
	}

	itemID, err := bson.ObjectIDFromHex(requestID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Request not found")
		return
	}

	votes, found, err := h.items.IncrementVotes(r.Context(), projectID, itemID)
	if err != nil {
		internalError(w, "failed to record vote", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Request not found")
		return
	}

	writeJSON(w, http.StatusOK, models.VoteResponse{Success: true, Votes: votes})
}

// requestedProject is the project a self-hosted call targets: the
// X-Project-Id header, or the key's own project when the header is absent.
func requestedProject(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(middleware.HeaderProjectID)); id != "" {
		return id
	}
	return middleware.GetProjectID(r.Context())
}

// authorizedFor rejects the request unless the API key belongs to projectID.
func authorizedFor(w http.ResponseWriter, r *http.Request, projectID string) bool {
	if projectID == "" || projectID != middleware.GetProjectID(r.Context()) {
		writeError(w, http.StatusUnauthorized, "Invalid API key")
		return false
	}
	return true
}
