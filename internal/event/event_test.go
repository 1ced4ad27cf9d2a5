package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := MustEnvelope(KindTypingUpdate, TypingUpdate{
		ScopeKey: "dm_alice_bob",
		UserID:   "alice",
	})

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, KindTypingUpdate, decoded.Kind)

	var payload TypingUpdate
	require.NoError(t, decoded.Decode(&payload))
	assert.Equal(t, "dm_alice_bob", payload.ScopeKey)
	assert.Equal(t, "alice", payload.UserID)
}

func TestEnvelopeWireShape(t *testing.T) {
	env := MustEnvelope(KindMarkDelivered, MarkDelivered{MessageID: "abc"})
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"mark_delivered","payload":{"messageId":"abc"}}`, string(raw))
}

func TestDecodeEmptyPayload(t *testing.T) {
	env := Envelope{Kind: KindSendMessage}
	var payload SendMessage
	err := env.Decode(&payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty payload")
}

func TestDecodeMalformedPayload(t *testing.T) {
	env := Envelope{Kind: KindMarkRead, Payload: json.RawMessage(`{"scope":42}`)}
	var payload MarkRead
	assert.Error(t, env.Decode(&payload))
}

func TestInboundKindsAreClosed(t *testing.T) {
	inbound := []string{
		KindSendMessage, KindEditMessage, KindDeleteMessage, KindReactMessage,
		KindMarkRead, KindMarkDelivered, KindTyping, KindJoinScope,
		KindTaskStatusChanged, KindTaskComment,
	}
	for _, kind := range inbound {
		assert.True(t, Inbound(kind), kind)
	}

	// Server-only and made-up kinds may never arrive from a client.
	for _, kind := range []string{
		KindMessageCreated, KindPresenceUpdate, KindDeliveryUpdate, KindError,
		"drop_tables", "",
	} {
		assert.False(t, Inbound(kind), kind)
	}
}

func TestPresenceUpdateTimestamps(t *testing.T) {
	lastSeen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	env := MustEnvelope(KindPresenceUpdate, PresenceUpdate{
		UserID:   "bob",
		Online:   false,
		LastSeen: lastSeen,
	})

	var payload PresenceUpdate
	require.NoError(t, env.Decode(&payload))
	assert.False(t, payload.Online)
	assert.True(t, payload.LastSeen.Equal(lastSeen))
}
