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
	"go.uber.org/zap"
)

var (
	ErrInvalidMessage  = errors.New("invalid message: message cannot be nil")
	ErrInvalidScopeKey = errors.New("invalid scope key: cannot be empty")
	ErrMessageNotFound = errors.New("message not found")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	historyPageSize = 50
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	ApplyEdit(ctx context.Context, id primitive.ObjectID, newBody string, at time.Time) error
	ApplyTombstone(ctx context.Context, id primitive.ObjectID, at time.Time) error
	AddReaction(ctx context.Context, id primitive.ObjectID, reaction model.Reaction) error
	History(ctx context.Context, orgID, scopeKey string, page int64) (*db.PaginatedResult[model.Message], error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (primitive.ObjectID, error) {
	if msg == nil {
		return primitive.NilObjectID, ErrInvalidMessage
	}
	if msg.ScopeKey == "" {
		return primitive.NilObjectID, ErrInvalidScopeKey
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return primitive.NilObjectID, err
			}
			m.logger.Warn("retrying message insert",
				zap.String("scope_key", msg.ScopeKey),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			id := msg.ID
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				id = oid
			}
			m.logger.Info("message inserted",
				zap.String("message_id", id.Hex()),
				zap.String("scope_key", msg.ScopeKey),
			)
			return id, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("failed to insert message",
		zap.Error(lastErr),
		zap.String("scope_key", msg.ScopeKey),
	)
	return primitive.NilObjectID, fmt.Errorf("insert message failed: %w", lastErr)
}

func (m *messageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

func (m *messageRepository) ApplyEdit(ctx context.Context, id primitive.ObjectID, newBody string, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateByID(ctx, id, bson.M{
		"body":      newBody,
		"edited":    true,
		"edited_at": at,
	})
	if err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ApplyTombstone soft-deletes: content is cleared, the document and its
// ordering metadata stay for audit and history pagination.
func (m *messageRepository) ApplyTombstone(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateByID(ctx, id, bson.M{
		"body":           "",
		"attachment_ref": nil,
		"deleted":        true,
		"deleted_at":     at,
	})
	if err != nil {
		return fmt.Errorf("apply tombstone: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (m *messageRepository) AddReaction(ctx context.Context, id primitive.ObjectID, reaction model.Reaction) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.Push(ctx, bson.M{"_id": id}, "reactions", reaction)
	if err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// History returns one page of the scope's messages, newest first. The filter
// carries the organization as well as the key: a scope key is only meaningful
// inside one organization, and colliding keys must never read across.
func (m *messageRepository) History(ctx context.Context, orgID, scopeKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	if scopeKey == "" {
		return nil, ErrInvalidScopeKey
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("org_id", orgID).Eq("scope_key", scopeKey).Build()

	result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     page,
		PageSize: historyPageSize,
		SortBy:   "created_at",
		SortDesc: true,
	})
	if err != nil {
		m.logger.Error("history read failed",
			zap.Error(err),
			zap.String("scope_key", scopeKey),
		)
		return nil, fmt.Errorf("load history: %w", err)
	}

	m.logger.Debug("history loaded",
		zap.String("scope_key", scopeKey),
		zap.Int("count", len(result.Data)),
		zap.Int64("page", result.Page),
	)
	return result, nil
}

// -----------------------------------------------------------------------------
// Shared repo helpers
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
