package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a group chat document. Membership is owned by the external
// CRUD surface; the realtime engine reads it as a snapshot at resolution time.
type Group struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrgID       string             `json:"orgId" bson:"organization_id"`
	Name        string             `json:"name" bson:"name"`
	Description *string            `json:"description" bson:"description"`
	CreatedBy   string             `json:"createdBy" bson:"created_by"`
	Members     []string           `json:"members" bson:"members"`
	Admins      []string           `json:"admins" bson:"admins"`
	IsActive    bool               `json:"isActive" bson:"is_active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}
