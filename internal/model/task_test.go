package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskAudience(t *testing.T) {
	task := &Task{
		CreatedBy:  "alice",
		AssignedTo: "bob",
		Watchers:   []string{"carol", "bob", "alice", "dave"},
	}
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, task.Audience())

	unassigned := &Task{CreatedBy: "alice", Watchers: []string{"bob"}}
	assert.Equal(t, []string{"alice", "bob"}, unassigned.Audience())
}

func TestValidTaskStatus(t *testing.T) {
	for _, s := range []string{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled} {
		assert.True(t, ValidTaskStatus(s), s)
	}
	assert.False(t, ValidTaskStatus("archived"))
	assert.False(t, ValidTaskStatus(""))
}

func TestDeliveryStateDerivation(t *testing.T) {
	st := &DeliveryStatus{}
	assert.Equal(t, StateSent, st.State())

	st.Delivered = true
	assert.Equal(t, StateDelivered, st.State())

	st.Read = true
	assert.Equal(t, StateRead, st.State())

	assert.Equal(t, "read", StateRead.String())
	assert.Equal(t, "unsent", StateUnsent.String())
}
