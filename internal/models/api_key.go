package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// APIKey maps an opaque key string to exactly one project.
type APIKey struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Key       string        `bson:"key" json:"key"`
	ProjectID string        `bson:"project_id" json:"projectId"`
	Active    bool          `bson:"active" json:"active"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}
