package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeedbackType string

const (
	TypeFeature FeedbackType = "feature"
	TypeBug     FeedbackType = "bug"
)

func (t FeedbackType) Valid() bool {
	return t == TypeFeature || t == TypeBug
}

// StatusNew is assigned by the server to every freshly created item.
const StatusNew = "new"

// FeedbackItem is a single feature request or bug report stored under a project.
type FeedbackItem struct {
	ID             bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID      string         `bson:"project_id" json:"projectId"`
	Title          string         `bson:"title" json:"title"`
	Description    string         `bson:"description" json:"description"`
	Type           FeedbackType   `bson:"type" json:"type"`
	Status         string         `bson:"status" json:"status"`
	Votes          int64          `bson:"votes" json:"votes"`
	Tags           []string       `bson:"tags,omitempty" json:"tags,omitempty"`
	Metadata       map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	IdempotencyKey string         `bson:"idempotency_key,omitempty" json:"-"`
	CreatedAt      time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updatedAt"`
}
