package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"squashfeature/internal/apikey"
	"squashfeature/internal/middleware"
	"squashfeature/internal/models"

	"github.com/go-chi/chi/v5"
)

type ProjectStore interface {
	ProjectFinder
	Create(ctx context.Context, project *models.Project) error
}

type KeyCreator interface {
	Create(ctx context.Context, key *models.APIKey) error
}

type AdminHandler struct {
	projects ProjectStore
	keys     KeyCreator
}

func NewAdminHandler(projects ProjectStore, keys KeyCreator) *AdminHandler {
	return &AdminHandler{projects: projects, keys: keys}
}

// --- POST /admin/projects ---

func (h *AdminHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	project := &models.Project{Name: req.Name, OwnerEmail: strings.TrimSpace(req.OwnerEmail)}
	if err := h.projects.Create(r.Context(), project); err != nil {
		internalError(w, "failed to create project", err)
		return
	}

	key, err := h.issue(r.Context(), project.ID.Hex())
	if err != nil {
		internalError(w, "failed to issue API key", err)
		return
	}

	log.Printf("[Admin] %s created project %s", middleware.GetAdminSubject(r.Context()), project.ID.Hex())
	writeJSON(w, http.StatusCreated, models.CreateProjectResponse{Project: project, APIKey: key})
}

// --- POST /admin/projects/{projectId}/keys ---

func (h *AdminHandler) IssueKey(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	project, err := h.projects.FindByID(r.Context(), projectID)
	if err != nil {
		internalError(w, "failed to load project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	key, err := h.issue(r.Context(), projectID)
	if err != nil {
		internalError(w, "failed to issue API key", err)
		return
	}

	log.Printf("[Admin] %s issued a key for project %s", middleware.GetAdminSubject(r.Context()), projectID)
	writeJSON(w, http.StatusCreated, models.IssueKeyResponse{APIKey: key})
}

func (h *AdminHandler) issue(ctx context.Context, projectID string) (string, error) {
	record := &models.APIKey{Key: apikey.Generate(), ProjectID: projectID, Active: true}
	if err := h.keys.Create(ctx, record); err != nil {
		return "", err
	}
	return record.Key, nil
}
