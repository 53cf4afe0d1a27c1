package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"squashfeature/internal/adminauth"
	"squashfeature/internal/handlers"
	"squashfeature/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminSecret = "s3cret"

type testEnv struct {
	store    *memStore
	notified chanNotifier
	handler  http.Handler
	projectA string
	projectB string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	notified := make(chanNotifier, 16)
	env := &testEnv{
		store:    store,
		notified: notified,
		projectA: store.addProject("Acme", "sq_A"),
		projectB: store.addProject("Globex", "sq_B"),
	}
	env.handler = New(Config{
		Feedback:       handlers.NewFeedbackHandler(store, memProjects{store}, notified),
		Admin:          handlers.NewAdminHandler(memProjects{store}, memKeys{store}),
		Keys:           store,
		AdminSecret:    adminSecret,
		AllowedOrigins: []string{"*"},
	})
	return env
}

func (e *testEnv) do(method, path string, headers map[string]string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func keyHeader(key string) map[string]string {
	return map[string]string{"X-API-Key": key}
}

func TestHealth(t *testing.T) {
	env := setup(t)
	w := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"squashfeature"}`, w.Body.String())
}

func TestCreateThenList(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), models.CreateItemRequest{
		Type:        models.TypeBug,
		Title:       "Crash on save",
		Description: "The editor crashes on save",
		Metadata:    map[string]any{"source": "widget"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.CreateItemResponse](t, w)
	assert.True(t, created.Success)

	w = env.do(http.MethodGet, "/api/feedback/"+env.projectA, keyHeader("sq_A"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]models.FeedbackItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "Crash on save", items[0].Title)
	assert.Equal(t, "new", items[0].Status)
	assert.Equal(t, int64(0), items[0].Votes)
	assert.Equal(t, models.TypeBug, items[0].Type)

	select {
	case n := <-env.notified:
		assert.Contains(t, n.message, "New bug report for Acme")
		assert.Empty(t, n.recipient)
	case <-time.After(time.Second):
		t.Fatal("expected a notification for the new item")
	}
}

func TestCreate_NotifiesProjectOwner(t *testing.T) {
	env := setup(t)
	token, err := adminauth.IssueToken(adminSecret, "ops", time.Hour)
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/admin/projects", map[string]string{"Authorization": "Bearer " + token},
		models.CreateProjectRequest{Name: "Initech", OwnerEmail: "owner@initech.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.CreateProjectResponse](t, w)

	w = env.do(http.MethodPost, "/api/requests", keyHeader(created.APIKey), models.CreateItemRequest{
		Type: models.TypeFeature, Title: "Dark mode", Description: "please",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	select {
	case n := <-env.notified:
		assert.Equal(t, "owner@initech.com", n.recipient)
		assert.Contains(t, n.message, "New feature request for Initech")
	case <-time.After(time.Second):
		t.Fatal("expected a notification for the new item")
	}
}

func TestCreate_BearerKeyAndOriginMetadata(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/api/requests", map[string]string{
		"Authorization": "Bearer sq_A",
		"Origin":        "https://shop.example.com",
	}, models.CreateItemRequest{Type: models.TypeFeature, Title: "Dark mode", Description: "please"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[models.CreateItemResponse](t, w)
	require.NotNil(t, resp.Request)
	assert.Equal(t, "https://shop.example.com", resp.Request.Metadata["origin"])
}

func TestCreate_MissingKey(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/api/requests", nil, models.CreateItemRequest{
		Type: models.TypeBug, Title: "t", Description: "d",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"API key required"}`, w.Body.String())
}

func TestCreate_InvalidKey(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_WRONG"), models.CreateItemRequest{
		Type: models.TypeBug, Title: "t", Description: "d",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, w.Body.String())
}

func TestCreate_ProjectHeaderMismatch(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/api/requests",
		map[string]string{"X-API-Key": "sq_A", "X-Project-Id": env.projectB},
		models.CreateItemRequest{Type: models.TypeBug, Title: "t", Description: "d"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.store.items)
}

func TestCreate_Validation(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"bad type", models.CreateItemRequest{Type: "question", Title: "t", Description: "d"}},
		{"blank title", models.CreateItemRequest{Type: models.TypeBug, Title: "  ", Description: "d"}},
		{"missing description", models.CreateItemRequest{Type: models.TypeBug, Title: "t"}},
		{"not json", "just a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, env.store.items)
}

func TestCreate_IdempotentRetry(t *testing.T) {
	env := setup(t)
	body := models.CreateItemRequest{Type: models.TypeFeature, Title: "t", Description: "d", IdempotencyKey: "draft-1"}

	first := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), body)
	require.Equal(t, http.StatusCreated, first.Code)
	second := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.True(t, decode[models.CreateItemResponse](t, second).Success)
	assert.Len(t, env.store.items, 1)
}

func TestList_ProjectMismatchLeaksNothing(t *testing.T) {
	env := setup(t)
	env.do(http.MethodPost, "/api/requests", keyHeader("sq_B"), models.CreateItemRequest{
		Type: models.TypeBug, Title: "secret", Description: "d",
	})

	w := env.do(http.MethodGet, "/api/feedback/"+env.projectB, keyHeader("sq_A"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	w = env.do(http.MethodGet, "/api/projects/"+env.projectB+"/dashboard", keyHeader("sq_A"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/projects/self-hosted/dashboard",
		map[string]string{"X-API-Key": "sq_A", "X-Project-Id": env.projectB}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestList_InternalErrorIsGeneric(t *testing.T) {
	env := setup(t)
	env.store.failList = true

	w := env.do(http.MethodGet, "/api/feedback/"+env.projectA, keyHeader("sq_A"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestDashboardBothModes(t *testing.T) {
	env := setup(t)
	for _, title := range []string{"older", "newer"} {
		w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), models.CreateItemRequest{
			Type: models.TypeFeature, Title: title, Description: "d",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	hosted := env.do(http.MethodGet, "/api/projects/"+env.projectA+"/dashboard", keyHeader("sq_A"), nil)
	require.Equal(t, http.StatusOK, hosted.Code)
	selfHosted := env.do(http.MethodPost, "/api/projects/self-hosted/dashboard",
		map[string]string{"X-API-Key": "sq_A", "X-Project-Id": env.projectA}, nil)
	require.Equal(t, http.StatusOK, selfHosted.Code)

	for _, w := range []*httptest.ResponseRecorder{hosted, selfHosted} {
		resp := decode[models.DashboardResponse](t, w)
		assert.Equal(t, env.projectA, resp.Project.ID)
		assert.Equal(t, "Acme", resp.Project.Name)
		require.Len(t, resp.Requests, 2)
		assert.Equal(t, "newer", resp.Requests[0].Title)
	}
}

func TestVoteBothModes(t *testing.T) {
	env := setup(t)
	w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), models.CreateItemRequest{
		Type: models.TypeFeature, Title: "t", Description: "d",
	})
	id := decode[models.CreateItemResponse](t, w).Request.ID.Hex()

	w = env.do(http.MethodPost, "/api/projects/self-hosted/vote",
		map[string]string{"X-API-Key": "sq_A", "X-Project-Id": env.projectA},
		models.VoteRequest{RequestID: id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.VoteResponse{Success: true, Votes: 1}, decode[models.VoteResponse](t, w))

	w = env.do(http.MethodPost, "/api/projects/"+env.projectA+"/requests/"+id+"/vote", keyHeader("sq_A"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[models.VoteResponse](t, w).Votes)
}

func TestVote_Errors(t *testing.T) {
	env := setup(t)
	w := env.do(http.MethodPost, "/api/requests", keyHeader("sq_A"), models.CreateItemRequest{
		Type: models.TypeFeature, Title: "t", Description: "d",
	})
	id := decode[models.CreateItemResponse](t, w).Request.ID.Hex()
	selfHosted := map[string]string{"X-API-Key": "sq_A", "X-Project-Id": env.projectA}

	w = env.do(http.MethodPost, "/api/projects/self-hosted/vote", selfHosted, models.VoteRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/projects/self-hosted/vote", selfHosted, models.VoteRequest{RequestID: "not-an-id"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Another project's key cannot vote on this item, even naming its own project.
	w = env.do(http.MethodPost, "/api/projects/"+env.projectB+"/requests/"+id+"/vote", keyHeader("sq_B"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/projects/"+env.projectA+"/requests/"+id+"/vote", keyHeader("sq_B"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, int64(0), env.store.items[0].Votes)
}

func TestAdmin(t *testing.T) {
	env := setup(t)
	token, err := adminauth.IssueToken(adminSecret, "ops", time.Hour)
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + token}

	w := env.do(http.MethodPost, "/admin/projects", nil, models.CreateProjectRequest{Name: "Initech"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/admin/projects", auth, models.CreateProjectRequest{Name: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/admin/projects", auth, models.CreateProjectRequest{Name: "Initech"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.CreateProjectResponse](t, w)
	require.NotEmpty(t, created.APIKey)

	// The new key works against the new project.
	projectID := created.Project.ID.Hex()
	w = env.do(http.MethodGet, "/api/feedback/"+projectID, keyHeader(created.APIKey), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/admin/projects/"+projectID+"/keys", auth, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	issued := decode[models.IssueKeyResponse](t, w)
	assert.NotEqual(t, created.APIKey, issued.APIKey)

	w = env.do(http.MethodPost, "/admin/projects/000000000000000000000000/keys", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDisabled(t *testing.T) {
	store := newMemStore()
	handler := New(Config{
		Feedback:       handlers.NewFeedbackHandler(store, memProjects{store}, make(chanNotifier, 1)),
		Keys:           store,
		AllowedOrigins: []string{"*"},
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/projects", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/requests", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key, Content-Type")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
