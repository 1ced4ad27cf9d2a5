package event

import (
	"time"

	"Relay/internal/model"
)

// ScopeRef is the client-side reference to a chat scope. Exactly one of the
// target fields is set depending on Kind; for a direct scope Peer names the
// other user, the sender side is implied by the connection.
type ScopeRef struct {
	Kind    string `json:"kind"` // "direct" | "group" | "task"
	Peer    string `json:"peer,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	TaskID  string `json:"taskId,omitempty"`
}

// Inbound payloads.

type SendMessage struct {
	Scope         ScopeRef `json:"scope"`
	Type          string   `json:"type,omitempty"`
	Content       string   `json:"content,omitempty"`
	AttachmentRef *string  `json:"attachmentRef,omitempty"`
	ReplyTo       string   `json:"replyTo,omitempty"`
}

type EditMessage struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

type DeleteMessage struct {
	MessageID string `json:"messageId"`
}

type ReactMessage struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type MarkRead struct {
	Scope ScopeRef `json:"scope"`
}

type MarkDelivered struct {
	MessageID string `json:"messageId"`
}

type Typing struct {
	Scope ScopeRef `json:"scope"`
}

type JoinScope struct {
	Scope ScopeRef `json:"scope"`
}

type TaskStatusChange struct {
	TaskID    string `json:"taskId"`
	NewStatus string `json:"newStatus"`
}

type TaskComment struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

// Outbound payloads.

type MessageCreated struct {
	Message model.Message `json:"message"`
}

type MessageEdited struct {
	MessageID string    `json:"messageId"`
	ScopeKey  string    `json:"scopeKey"`
	NewBody   string    `json:"newBody"`
	EditedAt  time.Time `json:"editedAt"`
}

type MessageDeleted struct {
	MessageID string    `json:"messageId"`
	ScopeKey  string    `json:"scopeKey"`
	DeletedAt time.Time `json:"deletedAt"`
}

type ReactionAdded struct {
	MessageID string    `json:"messageId"`
	ScopeKey  string    `json:"scopeKey"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeliveryUpdate struct {
	MessageID   string    `json:"messageId"`
	ScopeKey    string    `json:"scopeKey"`
	RecipientID string    `json:"recipientId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type ReadUpdate struct {
	MessageID   string    `json:"messageId"`
	ScopeKey    string    `json:"scopeKey"`
	RecipientID string    `json:"recipientId"`
	ReadAt      time.Time `json:"readAt"`
}

type PresenceUpdate struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

type TypingUpdate struct {
	ScopeKey string `json:"scopeKey"`
	UserID   string `json:"userId"`
}

type TaskEvent struct {
	Task model.Task `json:"task"`
}

type TaskCommentAdded struct {
	TaskID  string        `json:"taskId"`
	Comment model.Message `json:"comment"`
}

// ErrorPayload is sent only to the originating connection when an inbound
// event is rejected. Retryable marks transient store failures.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
