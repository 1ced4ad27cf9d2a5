package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event kinds. The set is closed: the dispatcher rejects anything
// outside it before looking at the payload.
const (
	KindSendMessage       = "send_message"
	KindEditMessage       = "edit_message"
	KindDeleteMessage     = "delete_message"
	KindReactMessage      = "react_message"
	KindMarkRead          = "mark_read"
	KindMarkDelivered     = "mark_delivered"
	KindTyping            = "typing"
	KindJoinScope         = "join_scope"
	KindTaskStatusChanged = "task_status_changed"
	KindTaskComment       = "task_comment"
)

// Outbound event kinds.
const (
	KindMessageCreated       = "message_created"
	KindMessageEdited        = "message_edited"
	KindMessageDeleted       = "message_deleted"
	KindReactionAdded        = "reaction_added"
	KindDeliveryUpdate       = "delivery_update"
	KindReadUpdate           = "read_update"
	KindPresenceUpdate       = "presence_update"
	KindTypingUpdate         = "typing_update"
	KindTaskCreated          = "task_created"
	KindTaskUpdated          = "task_updated"
	KindTaskStatusChangedOut = "task_status_changed"
	KindTaskCommentAdded     = "task_comment_added"
	KindTaskDeleted          = "task_deleted"
	KindError                = "error"
)

var ErrUnknownKind = errors.New("unknown event kind")

// Envelope is the wire frame for every realtime event, inbound and outbound.
// Kind selects the payload variant; Payload stays raw until the handler for
// that kind decodes it into its typed struct.
type Envelope struct {
	Kind    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given kind.
func NewEnvelope(kind string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: raw}, nil
}

// MustEnvelope is NewEnvelope for payload types that cannot fail to marshal.
func MustEnvelope(kind string, payload any) Envelope {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("decode %s: empty payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Inbound reports whether kind names an event a client may send.
func Inbound(kind string) bool {
	switch kind {
	case KindSendMessage, KindEditMessage, KindDeleteMessage, KindReactMessage,
		KindMarkRead, KindMarkDelivered, KindTyping, KindJoinScope,
		KindTaskStatusChanged, KindTaskComment:
		return true
	}
	return false
}
