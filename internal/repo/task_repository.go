package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Relay/internal/db"
	"Relay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrTaskNotFound = errors.New("task not found")

type taskRepository struct {
	mongoRepo *db.Repository[model.Task]
}

type TaskRepository interface {
	Get(ctx context.Context, taskID string) (*model.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status string, at time.Time) (*model.Task, error)
}

func NewTaskRepository(repo *db.Repository[model.Task]) TaskRepository {
	return &taskRepository{mongoRepo: repo}
}

func (t *taskRepository) Get(ctx context.Context, taskID string) (*model.Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrTaskNotFound, taskID)
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	task, err := t.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func (t *taskRepository) UpdateStatus(ctx context.Context, taskID string, status string, at time.Time) (*model.Task, error) {
	task, err := t.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := t.mongoRepo.UpdateByID(ctx, task.ID, bson.M{
		"status":     status,
		"updated_at": at,
	})
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrTaskNotFound
	}

	task.Status = status
	task.UpdatedAt = at
	return task, nil
}
