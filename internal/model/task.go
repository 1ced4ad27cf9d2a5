package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task status values
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Task represents a task document. Task events fan out to its audience:
// watchers plus assignee plus creator.
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrgID       string             `json:"orgId" bson:"org_id"`
	Title       string             `json:"title" bson:"title"`
	Description *string            `json:"description" bson:"description"`
	CreatedBy   string             `json:"createdBy" bson:"created_by"`
	AssignedTo  string             `json:"assignedTo" bson:"assigned_to"`
	Watchers    []string           `json:"watchers" bson:"watchers"`
	Status      string             `json:"status" bson:"status"`
	DueDate     *time.Time         `json:"dueDate" bson:"due_date"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// ValidTaskStatus reports whether s is one of the recognized task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Audience returns the deduplicated set of users that task events fan out to.
func (t *Task) Audience() []string {
	seen := make(map[string]struct{}, len(t.Watchers)+2)
	out := make([]string, 0, len(t.Watchers)+2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(t.CreatedBy)
	add(t.AssignedTo)
	for _, w := range t.Watchers {
		add(w)
	}
	return out
}
