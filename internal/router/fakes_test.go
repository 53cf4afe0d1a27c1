package router

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"squashfeature/internal/apikey"
	"squashfeature/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type memStore struct {
	mu       sync.Mutex
	items    []*models.FeedbackItem
	projects map[string]*models.Project
	keys     map[string]string
	failList bool
}

func newMemStore() *memStore {
	return &memStore{projects: map[string]*models.Project{}, keys: map[string]string{}}
}

func (s *memStore) addProject(name, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Project{ID: bson.NewObjectID(), Name: name}
	s.projects[p.ID.Hex()] = p
	s.keys[key] = p.ID.Hex()
	return p.ID.Hex()
}

// Resolve implements the key resolver.
func (s *memStore) Resolve(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projectID, ok := s.keys[key]
	if !ok {
		return "", apikey.ErrInvalidKey
	}
	return projectID, nil
}

func (s *memStore) Create(_ context.Context, item *models.FeedbackItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Add(time.Duration(len(s.items)) * time.Millisecond)
	item.ID = bson.NewObjectID()
	item.Votes = 0
	item.Status = models.StatusNew
	item.CreatedAt, item.UpdatedAt = now, now
	copied := *item
	s.items = append(s.items, &copied)
	return nil
}

func (s *memStore) FindByIdempotencyKey(_ context.Context, projectID, key string) (*models.FeedbackItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ProjectID == projectID && it.IdempotencyKey == key {
			copied := *it
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListByProject(_ context.Context, projectID string) ([]models.FeedbackItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errors.New("mongo: connection pool closed at 10.0.0.5")
	}
	out := []models.FeedbackItem{}
	for _, it := range s.items {
		if it.ProjectID == projectID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) IncrementVotes(_ context.Context, projectID string, id bson.ObjectID) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id && it.ProjectID == projectID {
			it.Votes++
			return it.Votes, true, nil
		}
	}
	return 0, false, nil
}

type memProjects struct{ s *memStore }

func (p memProjects) FindByID(_ context.Context, id string) (*models.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.projects[id], nil
}

func (p memProjects) Create(_ context.Context, project *models.Project) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	project.ID = bson.NewObjectID()
	p.s.projects[project.ID.Hex()] = project
	return nil
}

type memKeys struct{ s *memStore }

func (k memKeys) Create(_ context.Context, key *models.APIKey) error {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	k.s.keys[key.Key] = key.ProjectID
	return nil
}

type notification struct {
	recipient string
	message   string
}

type chanNotifier chan notification

func (c chanNotifier) Publish(_ context.Context, recipient, message string) error {
	c <- notification{recipient: recipient, message: message}
	return nil
}
