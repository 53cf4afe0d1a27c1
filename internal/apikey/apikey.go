// Package apikey resolves API keys to the project they belong to and issues
// new keys.
package apikey

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"squashfeature/internal/models"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("invalid API key")

// KeyPrefix marks every key issued by this server.
const KeyPrefix = "sq_"

type KeyFinder interface {
	FindActive(ctx context.Context, key string) (*models.APIKey, error)
}

// Cache is an optional read-through cache of key -> project id.
type Cache interface {
	ProjectForKey(ctx context.Context, key string) (string, bool, error)
	StoreKey(ctx context.Context, key, projectID string, ttl time.Duration) error
}

type Validator struct {
	keys  KeyFinder
	cache Cache
	ttl   time.Duration
}

// NewValidator builds a validator. cache may be nil.
func NewValidator(keys KeyFinder, cache Cache, ttl time.Duration) *Validator {
	return &Validator{keys: keys, cache: cache, ttl: ttl}
}

// Resolve returns the project id the key belongs to, ErrInvalidKey when the
// key is unknown or revoked, or a store error.
func (v *Validator) Resolve(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	if v.cache != nil {
		projectID, ok, err := v.cache.ProjectForKey(ctx, key)
		if err != nil {
			log.Printf("[APIKey] cache lookup failed, falling back to store: %v", err)
		} else if ok {
			return projectID, nil
		}
	}

	record, err := v.keys.FindActive(ctx, key)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrInvalidKey
	}

	if v.cache != nil {
		if err := v.cache.StoreKey(ctx, key, record.ProjectID, v.ttl); err != nil {
			log.Printf("[APIKey] cache store failed: %v", err)
		}
	}
	return record.ProjectID, nil
}

// Generate returns a fresh key: the prefix followed by 32 upper-case hex
// characters.
func Generate() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return KeyPrefix + strings.ToUpper(raw)
}
