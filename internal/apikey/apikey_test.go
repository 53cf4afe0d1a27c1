package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"squashfeature/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeys struct {
	records map[string]string
	calls   int
	err     error
}

func (f *fakeKeys) FindActive(_ context.Context, key string) (*models.APIKey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	projectID, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	return &models.APIKey{Key: key, ProjectID: projectID, Active: true}, nil
}

type fakeCache struct {
	entries map[string]string
	ttls    map[string]time.Duration
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) ProjectForKey(_ context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	p, ok := c.entries[key]
	return p, ok, nil
}

func (c *fakeCache) StoreKey(_ context.Context, key, projectID string, ttl time.Duration) error {
	c.entries[key] = projectID
	c.ttls[key] = ttl
	return nil
}

func TestResolve_KnownKey(t *testing.T) {
	v := NewValidator(&fakeKeys{records: map[string]string{"sq_A": "proj-a"}}, nil, time.Minute)

	projectID, err := v.Resolve(context.Background(), "sq_A")
	require.NoError(t, err)
	assert.Equal(t, "proj-a", projectID)
}

func TestResolve_UnknownAndEmptyKeys(t *testing.T) {
	keys := &fakeKeys{records: map[string]string{}}
	v := NewValidator(keys, nil, time.Minute)

	_, err := v.Resolve(context.Background(), "sq_NOPE")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = v.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Equal(t, 1, keys.calls, "empty key never reaches the store")
}

func TestResolve_StoreErrorIsNotInvalidKey(t *testing.T) {
	v := NewValidator(&fakeKeys{err: errors.New("connection reset")}, nil, time.Minute)

	_, err := v.Resolve(context.Background(), "sq_A")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidKey)
}

func TestResolve_UsesCache(t *testing.T) {
	keys := &fakeKeys{records: map[string]string{"sq_A": "proj-a"}}
	cache := newFakeCache()
	v := NewValidator(keys, cache, 2*time.Minute)

	for i := 0; i < 3; i++ {
		projectID, err := v.Resolve(context.Background(), "sq_A")
		require.NoError(t, err)
		assert.Equal(t, "proj-a", projectID)
	}

	assert.Equal(t, 1, keys.calls)
	assert.Equal(t, 2*time.Minute, cache.ttls["sq_A"])
}

func TestResolve_CacheFailureFallsBack(t *testing.T) {
	keys := &fakeKeys{records: map[string]string{"sq_A": "proj-a"}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	v := NewValidator(keys, cache, time.Minute)

	projectID, err := v.Resolve(context.Background(), "sq_A")
	require.NoError(t, err)
	assert.Equal(t, "proj-a", projectID)
}

func TestResolve_InvalidKeysAreNotCached(t *testing.T) {
	cache := newFakeCache()
	v := NewValidator(&fakeKeys{records: map[string]string{}}, cache, time.Minute)

	_, err := v.Resolve(context.Background(), "sq_NOPE")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Empty(t, cache.entries)
}

func TestGenerate(t *testing.T) {
	a, b := Generate(), Generate()

	assert.True(t, strings.HasPrefix(a, KeyPrefix))
	assert.Len(t, a, len(KeyPrefix)+32)
	assert.Equal(t, strings.ToUpper(a[len(KeyPrefix):]), a[len(KeyPrefix):])
	assert.NotEqual(t, a, b)
}
