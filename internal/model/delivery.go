package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryState is the monotone per-recipient progression of a message.
type DeliveryState int

const (
	StateUnsent DeliveryState = iota
	StateSent
	StateDelivered
	StateRead
)

func (s DeliveryState) String() string {
	switch s {
	case StateSent:
		return "sent"
	case StateDelivered:
		return "delivered"
	case StateRead:
		return "read"
	default:
		return "unsent"
	}
}

// DeliveryStatus tracks delivery and read state for one (message, recipient)
// pair. A later state implies all earlier ones: read implies delivered.
type DeliveryStatus struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID   primitive.ObjectID `json:"messageId" bson:"message_id"`
	OrgID       string             `json:"orgId" bson:"org_id"`
	ScopeKey    string             `json:"scopeKey" bson:"scope_key"`
	RecipientID string             `json:"recipientId" bson:"recipient_id"`
	Delivered   bool               `json:"delivered" bson:"delivered"`
	DeliveredAt *time.Time         `json:"deliveredAt" bson:"delivered_at"`
	Read        bool               `json:"read" bson:"read"`
	ReadAt      *time.Time         `json:"readAt" bson:"read_at"`
}

// State derives the recipient's position in the sent/delivered/read chain.
// A status record only exists once the message was sent to the recipient.
func (d *DeliveryStatus) State() DeliveryState {
	switch {
	case d.Read:
		return StateRead
	case d.Delivered:
		return StateDelivered
	default:
		return StateSent
	}
}

// DeliverySummary is the aggregate view of a message's per-recipient statuses,
// for callers that want "read by at least one" instead of the full roster.
type DeliverySummary struct {
	Recipients     int      `json:"recipients"`
	ReadByAny      bool     `json:"readByAny"`
	ReadByAll      bool     `json:"readByAll"`
	DeliveredToAll bool     `json:"deliveredToAll"`
	ReadBy         []string `json:"readBy"`
}
