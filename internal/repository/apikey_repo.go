package repository

import (
	"context"
	"errors"
	"time"

	"squashfeature/internal/database"
	"squashfeature/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type APIKeyRepo struct {
	collection *mongo.Collection
}

func NewAPIKeyRepo() *APIKeyRepo {
	return &APIKeyRepo{
		collection: database.GetCollection("api_keys"),
	}
}

func (r *APIKeyRepo) Create(ctx context.Context, key *models.APIKey) error {
	key.CreatedAt = time.Now().UTC()
	result, err := r.collection.InsertOne(ctx, key)
	if err != nil {
		return err
	}
	key.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindActive returns the active record for key, or nil if there is none.
func (r *APIKeyRepo) FindActive(ctx context.Context, key string) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.collection.FindOne(ctx, bson.M{"key": key, "active": true}).Decode(&apiKey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &apiKey, nil
}

// EnsureIndexes creates necessary indexes for the api_keys collection
func (r *APIKeyRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "project_id", Value: 1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
