package hub

import (
	"context"
	"errors"
	"testing"

	"Relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRouterDirectScope(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	recipients, err := e.router.ResolveRecipients(ctx, DirectScope("org1", "alice", "bob"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, recipients)

	// Notes-to-self: one recipient, not two.
	recipients, err = e.router.ResolveRecipients(ctx, DirectScope("org1", "alice", "alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, recipients)

	_, err = e.router.ResolveRecipients(ctx, Scope{Kind: ScopeDirect, OrgID: "org1", UserA: "alice"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRouterGroupScope(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	groupID := primitive.NewObjectID().Hex()
	e.groups.put(groupID, model.Group{
		OrgID:    "org1",
		Members:  []string{"alice", "bob", "carol"},
		IsActive: true,
	})

	recipients, err := e.router.ResolveRecipients(ctx, GroupScope("org1", groupID))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, recipients)

	_, err = e.router.ResolveRecipients(ctx, GroupScope("org1", primitive.NewObjectID().Hex()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouterGroupOrgIsolationFailsClosed(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	groupID := primitive.NewObjectID().Hex()
	e.groups.put(groupID, model.Group{
		OrgID:    "org2",
		Members:  []string{"alice", "bob"},
		IsActive: true,
	})

	recipients, err := e.router.ResolveRecipients(ctx, GroupScope("org1", groupID))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, recipients, "no partial recipient set ever leaks")
}

func TestRouterRejectsCrossOrgLiveConnection(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// bob's live session belongs to another organization.
	e.connect("bob", "org2")

	recipients, err := e.router.ResolveRecipients(ctx, DirectScope("org1", "alice", "bob"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, recipients)
}

func TestRouterTaskScopeAudience(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	taskID := primitive.NewObjectID().Hex()
	e.tasks.put(taskID, model.Task{
		OrgID:      "org1",
		CreatedBy:  "alice",
		AssignedTo: "bob",
		Watchers:   []string{"carol", "bob"},
		Status:     model.TaskStatusPending,
	})

	recipients, err := e.router.ResolveRecipients(ctx, TaskScope("org1", taskID))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, recipients, "audience deduplicates the assignee")

	_, err = e.router.ResolveRecipients(ctx, TaskScope("org2", taskID))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRouterLookupFailureIsTransient(t *testing.T) {
	e := newTestEngine()
	e.groups.failErr = errors.New("connection reset")

	_, err := e.router.ResolveRecipients(context.Background(), GroupScope("org1", primitive.NewObjectID().Hex()))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRouterResolveConnections(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	e.connect("alice", "org1")
	e.connect("alice", "org1") // second device
	e.connect("bob", "org1")

	conns, err := e.router.ResolveConnections(ctx, DirectScope("org1", "alice", "bob"))
	require.NoError(t, err)
	assert.Len(t, conns, 3, "every live device of every recipient")

	seen := make(map[string]int)
	for _, c := range conns {
		seen[c.UserID]++
	}
	assert.Equal(t, 2, seen["alice"])
	assert.Equal(t, 1, seen["bob"])
}
