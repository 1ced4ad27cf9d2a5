package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboxEntry is the per-(scope, user) row behind the unified inbox: unread
// counter plus last-message preview. One entry per participant per scope,
// upserted on every message (fan-out write) and reset by mark-read.
type InboxEntry struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        string             `json:"userId" bson:"user_id"`
	OrgID         string             `json:"orgId" bson:"org_id"`
	ScopeKey      string             `json:"scopeKey" bson:"scope_key"`
	ScopeKind     string             `json:"scopeKind" bson:"scope_kind"`
	Unread        int64              `json:"unread" bson:"unread"`
	LastMessage   string             `json:"lastMessage" bson:"last_message"`
	LastMessageAt time.Time          `json:"lastMessageAt" bson:"last_message_at"`
}
