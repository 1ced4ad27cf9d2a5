package repo

import (
	"context"
	"errors"
	"fmt"

	"Relay/internal/db"
	"Relay/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrGroupNotFound = errors.New("group not found")

type groupRepository struct {
	mongoRepo *db.Repository[model.Group]
}

// GroupRepository exposes membership snapshots. Membership itself is managed
// by the external CRUD surface; the router reads it fresh at resolution time.
type GroupRepository interface {
	Get(ctx context.Context, groupID string) (*model.Group, error)
}

func NewGroupRepository(repo *db.Repository[model.Group]) GroupRepository {
	return &groupRepository{mongoRepo: repo}
}

func (g *groupRepository) Get(ctx context.Context, groupID string) (*model.Group, error) {
	id, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrGroupNotFound, groupID)
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	group, err := g.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	if !group.IsActive {
		return nil, ErrGroupNotFound
	}
	return group, nil
}
