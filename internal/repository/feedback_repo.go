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

// FeedbackRepo stores feedback items in the "requests" collection. Every item
// carries its project id, which scopes all reads and the vote update.
type FeedbackRepo struct {
	collection *mongo.Collection
}

func NewFeedbackRepo() *FeedbackRepo {
	return &FeedbackRepo{
		collection: database.GetCollection("requests"),
	}
}

// Create inserts a new item with votes=0, status "new" and server timestamps.
func (r *FeedbackRepo) Create(ctx context.Context, item *models.FeedbackItem) error {
	now := time.Now().UTC()
	item.ID = bson.ObjectID{}
	item.Votes = 0
	item.Status = models.StatusNew
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return err
	}
	item.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByIdempotencyKey returns the item a previous submission created with the
// same key, or nil when there is none.
func (r *FeedbackRepo) FindByIdempotencyKey(ctx context.Context, projectID, key string) (*models.FeedbackItem, error) {
	var item models.FeedbackItem
	err := r.collection.FindOne(ctx, bson.M{"project_id": projectID, "idempotency_key": key}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByProject returns every item of the project, most recent first.
func (r *FeedbackRepo) ListByProject(ctx context.Context, projectID string) ([]models.FeedbackItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}

	items := []models.FeedbackItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// IncrementVotes adds one vote and returns the count after the update. found
// is false when the item does not exist in the project. updated_at is left
// alone: it tracks content changes, not votes.
func (r *FeedbackRepo) IncrementVotes(ctx context.Context, projectID string, itemID bson.ObjectID) (votes int64, found bool, err error) {
	var item models.FeedbackItem
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": itemID, "project_id": projectID},
		bson.M{"$inc": bson.M{"votes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return item.Votes, true, nil
}

// EnsureIndexes creates necessary indexes for the requests collection
func (r *FeedbackRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
