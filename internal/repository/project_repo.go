package repository

import (
	"context"
	"errors"
	"time"

	"squashfeature/internal/database"
	"squashfeature/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type ProjectRepo struct {
	collection *mongo.Collection
}

func NewProjectRepo() *ProjectRepo {
	return &ProjectRepo{
		collection: database.GetCollection("projects"),
	}
}

func (r *ProjectRepo) Create(ctx context.Context, project *models.Project) error {
	project.CreatedAt = time.Now().UTC()
	project.UpdatedAt = project.CreatedAt
	result, err := r.collection.InsertOne(ctx, project)
	if err != nil {
		return err
	}
	project.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByID looks a project up by its hex id. Unknown and malformed ids both
// yield (nil, nil).
func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var project models.Project
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}
