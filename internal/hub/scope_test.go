package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectScopeIsUnordered(t *testing.T) {
	a := DirectScope("org1", "alice", "bob")
	b := DirectScope("org1", "bob", "alice")

	assert.Equal(t, a, b)
	assert.Equal(t, "dm_alice_bob", a.Key())
}

func TestScopeKeys(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"direct", DirectScope("org1", "bob", "alice"), "dm_alice_bob"},
		{"self dm", DirectScope("org1", "alice", "alice"), "dm_alice_alice"},
		{"group", GroupScope("org1", "g123"), "grp_g123"},
		{"task", TaskScope("org1", "t456"), "task_t456"},
		{"unknown kind", Scope{Kind: "channel"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Key())
		})
	}
}

func TestScopeFromKeyRoundTrip(t *testing.T) {
	scopes := []Scope{
		DirectScope("org1", "alice", "bob"),
		GroupScope("org1", "g123"),
		TaskScope("org1", "t456"),
	}
	for _, want := range scopes {
		got, err := ScopeFromKey(want.Kind, want.OrgID, want.Key())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestScopeFromKeyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		kind string
		key  string
	}{
		{"wrong prefix", ScopeDirect, "grp_alice_bob"},
		{"missing peer", ScopeDirect, "dm_alice"},
		{"empty peer", ScopeDirect, "dm_alice_"},
		{"empty group", ScopeGroup, "grp_"},
		{"task key on group kind", ScopeGroup, "task_t456"},
		{"empty task", ScopeTask, "task_"},
		{"unknown kind", "channel", "ch_123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScopeFromKey(tt.kind, "org1", tt.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
