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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrInvalidRecipient = errors.New("invalid recipient: cannot be empty")

type statusRepository struct {
	statuses *db.Repository[model.DeliveryStatus]
	presence *db.Repository[model.PresenceRecord]
	inbox    *db.Repository[model.InboxEntry]
	logger   *zap.Logger
}

type StatusRepository interface {
	UpsertDeliveryStatus(ctx context.Context, status *model.DeliveryStatus) error
	BulkMarkRead(ctx context.Context, orgID, scopeKey, userID string, at time.Time) ([]primitive.ObjectID, error)
	UndeliveredFor(ctx context.Context, orgID, scopeKey, userID string) ([]primitive.ObjectID, error)
	StatusesFor(ctx context.Context, messageID primitive.ObjectID) ([]model.DeliveryStatus, error)
	UpsertPresence(ctx context.Context, record *model.PresenceRecord) error
	PresenceForOrg(ctx context.Context, orgID string) ([]model.PresenceRecord, error)
	TouchInbox(ctx context.Context, msg *model.Message, participants []string) error
	ResetUnread(ctx context.Context, orgID, scopeKey, userID string) error
	UnreadTotal(ctx context.Context, orgID, userID string) (int64, error)
}

func NewStatusRepository(
	statuses *db.Repository[model.DeliveryStatus],
	presence *db.Repository[model.PresenceRecord],
	inbox *db.Repository[model.InboxEntry],
	logger *zap.Logger,
) StatusRepository {
	return &statusRepository{
		statuses: statuses,
		presence: presence,
		inbox:    inbox,
		logger:   logger,
	}
}

// -----------------------------------------------------------------------------
// Delivery statuses
// -----------------------------------------------------------------------------

func (s *statusRepository) UpsertDeliveryStatus(ctx context.Context, status *model.DeliveryStatus) error {
	if status == nil || status.RecipientID == "" {
		return ErrInvalidRecipient
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("message_id", status.MessageID).
		Eq("recipient_id", status.RecipientID).
		Build()

	_, err := s.statuses.Upsert(ctx, filter, bson.M{
		"message_id":   status.MessageID,
		"org_id":       status.OrgID,
		"scope_key":    status.ScopeKey,
		"recipient_id": status.RecipientID,
		"delivered":    status.Delivered,
		"delivered_at": status.DeliveredAt,
		"read":         status.Read,
		"read_at":      status.ReadAt,
	})
	if err != nil {
		return fmt.Errorf("upsert delivery status: %w", err)
	}
	return nil
}

// unreadStatusFilter matches the user's unread statuses in a scope within one
// organization, optionally constrained to a known message id set.
func unreadStatusFilter(orgID, scopeKey, userID string, ids []primitive.ObjectID) bson.M {
	f := db.NewFilter().
		Eq("org_id", orgID).
		Eq("scope_key", scopeKey).
		Eq("recipient_id", userID).
		Eq("read", false)
	if len(ids) > 0 {
		f.In("message_id", ids)
	}
	return f.Build()
}

// BulkMarkRead advances every unread status for the user in the scope to read
// (and delivered) with one shared timestamp, returning the affected message
// IDs. Replaying with nothing left unread returns an empty slice.
func (s *statusRepository) BulkMarkRead(ctx context.Context, orgID, scopeKey, userID string, at time.Time) ([]primitive.ObjectID, error) {
	if userID == "" {
		return nil, ErrInvalidRecipient
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	unread, err := s.statuses.FindAll(ctx, unreadStatusFilter(orgID, scopeKey, userID, nil))
	if err != nil {
		return nil, fmt.Errorf("find unread statuses: %w", err)
	}
	if len(unread) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(unread))
	for _, st := range unread {
		ids = append(ids, st.MessageID)
	}

	// The write is constrained to the ids just read, so a status inserted
	// between the two calls is never marked read without appearing in the
	// returned set.
	_, err = s.statuses.UpdateMany(ctx, unreadStatusFilter(orgID, scopeKey, userID, ids), bson.M{
		"delivered":    true,
		"delivered_at": at,
		"read":         true,
		"read_at":      at,
	})
	if err != nil {
		return nil, fmt.Errorf("bulk mark read: %w", err)
	}

	s.logger.Debug("bulk mark read",
		zap.String("scope_key", scopeKey),
		zap.String("user_id", userID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

func (s *statusRepository) UndeliveredFor(ctx context.Context, orgID, scopeKey, userID string) ([]primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("org_id", orgID).
		Eq("scope_key", scopeKey).
		Eq("recipient_id", userID).
		Eq("delivered", false).
		Build()

	statuses, err := s.statuses.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find undelivered: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(statuses))
	for _, st := range statuses {
		ids = append(ids, st.MessageID)
	}
	return ids, nil
}

func (s *statusRepository) StatusesFor(ctx context.Context, messageID primitive.ObjectID) ([]model.DeliveryStatus, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return s.statuses.FindAll(ctx, db.NewFilter().Eq("message_id", messageID).Build())
}

// -----------------------------------------------------------------------------
// Presence
// -----------------------------------------------------------------------------

func (s *statusRepository) UpsertPresence(ctx context.Context, record *model.PresenceRecord) error {
	if record == nil || record.UserID == "" {
		return ErrInvalidRecipient
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := s.presence.Upsert(ctx, db.NewFilter().Eq("user_id", record.UserID).Build(), bson.M{
		"user_id":    record.UserID,
		"org_id":     record.OrgID,
		"online":     record.Online,
		"last_seen":  record.LastSeen,
		"updated_at": record.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

func (s *statusRepository) PresenceForOrg(ctx context.Context, orgID string) ([]model.PresenceRecord, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return s.presence.FindAll(ctx, db.NewFilter().Eq("org_id", orgID).Build())
}

// -----------------------------------------------------------------------------
// Inbox counters
// -----------------------------------------------------------------------------

// TouchInbox is the fan-out write behind the unified inbox: one upsert per
// participant with the last-message preview, bumping unread for everyone but
// the sender.
func (s *statusRepository) TouchInbox(ctx context.Context, msg *model.Message, participants []string) error {
	if msg == nil {
		return ErrInvalidMessage
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	col := s.inbox.Collection()
	for _, userID := range participants {
		set := bson.M{
			"user_id":         userID,
			"org_id":          msg.OrgID,
			"scope_key":       msg.ScopeKey,
			"scope_kind":      msg.ScopeKind,
			"last_message":    msg.Body,
			"last_message_at": msg.CreatedAt,
		}
		update := bson.M{"$set": set}
		if userID == msg.SenderID {
			set["unread"] = int64(0)
		} else {
			update["$inc"] = bson.M{"unread": 1}
		}

		filter := bson.M{"user_id": userID, "scope_key": msg.ScopeKey}
		if _, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("touch inbox for %s: %w", userID, err)
		}
	}
	return nil
}

func (s *statusRepository) ResetUnread(ctx context.Context, orgID, scopeKey, userID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("org_id", orgID).Eq("scope_key", scopeKey).Eq("user_id", userID).Build()
	if _, err := s.inbox.Update(ctx, filter, bson.M{"unread": int64(0)}); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

func (s *statusRepository) UnreadTotal(ctx context.Context, orgID, userID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	entries, err := s.inbox.FindAll(ctx, db.NewFilter().Eq("org_id", orgID).Eq("user_id", userID).Build())
	if err != nil {
		return 0, fmt.Errorf("unread total: %w", err)
	}

	var total int64
	for _, e := range entries {
		total += e.Unread
	}
	return total, nil
}
