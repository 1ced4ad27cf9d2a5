package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PresenceRecord holds a user's derived online state. Online is true iff the
// user has at least one live connection; LastSeen is set only when the last
// connection goes away and never moves backwards.
type PresenceRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"user_id"`
	OrgID     string             `json:"orgId" bson:"org_id"`
	Online    bool               `json:"online" bson:"online"`
	LastSeen  time.Time          `json:"lastSeen" bson:"last_seen"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}
