package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
	MessageTypeComment  = "comment" // task comments share the message collection
)

// Message represents a chat or task-comment message in MongoDB. The ObjectID
// doubles as the wire message identifier: it embeds the creation timestamp and
// sorts monotonically.
type Message struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	OrgID         string              `json:"orgId" bson:"org_id"`
	ScopeKind     string              `json:"scopeKind" bson:"scope_kind"`
	ScopeKey      string              `json:"scopeKey" bson:"scope_key"`
	SenderID      string              `json:"senderId" bson:"sender_id"`
	Type          string              `json:"type" bson:"type"`
	Body          string              `json:"body" bson:"body"`
	AttachmentRef *string             `json:"attachmentRef" bson:"attachment_ref"`
	ReplyTo       *primitive.ObjectID `json:"replyTo" bson:"reply_to"`
	Reactions     []Reaction          `json:"reactions" bson:"reactions"`
	Edited        bool                `json:"edited" bson:"edited"`
	EditedAt      *time.Time          `json:"editedAt" bson:"edited_at"`
	Deleted       bool                `json:"deleted" bson:"deleted"`
	DeletedAt     *time.Time          `json:"deletedAt" bson:"deleted_at"`
	CreatedAt     time.Time           `json:"createdAt" bson:"created_at"`
}

// Reaction represents a reaction on a message
type Reaction struct {
	UserID    string    `json:"userId" bson:"user_id"`
	Emoji     string    `json:"emoji" bson:"emoji"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
