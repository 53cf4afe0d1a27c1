package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Project struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string        `bson:"name" json:"name"`
	OwnerEmail string        `bson:"owner_email,omitempty" json:"ownerEmail,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updatedAt"`
}

// ProjectSummary is the public view of a project shown on dashboards.
type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{ID: p.ID.Hex(), Name: p.Name}
}
