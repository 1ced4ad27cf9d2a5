package hub

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"Relay/internal/model"
	"Relay/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const deliveryShards = 64

type deliveryShard struct {
	mu       sync.Mutex
	messages map[string]map[string]*model.DeliveryStatus // messageID hex -> recipient -> status
}

// DeliveryTracker is the per-(message, recipient) state machine:
// sent -> delivered -> read, strictly monotone, idempotent under duplicate
// or out-of-order acknowledgments. Locking is striped by message so
// unrelated chats never serialize on each other; mutations write through to
// the status store before any caller fans out.
type DeliveryTracker struct {
	shards   [deliveryShards]*deliveryShard
	statuses repo.StatusRepository
	logger   *zap.Logger
}

func NewDeliveryTracker(statuses repo.StatusRepository, logger *zap.Logger) *DeliveryTracker {
	d := &DeliveryTracker{
		statuses: statuses,
		logger:   logger,
	}
	for i := 0; i < deliveryShards; i++ {
		d.shards[i] = &deliveryShard{messages: make(map[string]map[string]*model.DeliveryStatus)}
	}
	return d
}

func (d *DeliveryTracker) shard(messageID string) *deliveryShard {
	h := fnv.New32a()
	h.Write([]byte(messageID))
	return d.shards[h.Sum32()%deliveryShards]
}

// loadLocked returns the recipient map for a message, pulling persisted
// statuses into memory on first touch after a restart. Caller holds sh.mu.
func (d *DeliveryTracker) loadLocked(ctx context.Context, sh *deliveryShard, messageID primitive.ObjectID) (map[string]*model.DeliveryStatus, error) {
	key := messageID.Hex()
	if m, ok := sh.messages[key]; ok {
		return m, nil
	}

	stored, err := d.statuses.StatusesFor(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: load delivery statuses: %v", ErrUnavailable, err)
	}

	m := make(map[string]*model.DeliveryStatus, len(stored))
	for i := range stored {
		st := stored[i]
		m[st.RecipientID] = &st
	}
	sh.messages[key] = m
	return m, nil
}

// OnMessageCreated seeds `sent` for every recipient and advances to
// `delivered` straight away for recipients with a live connection (either
// signal advances the state: presence at dispatch or an explicit ack).
// Returns the recipients that were immediately delivered.
func (d *DeliveryTracker) OnMessageCreated(ctx context.Context, msg *model.Message, recipients []string, online func(string) bool) ([]string, error) {
	sh := d.shard(msg.ID.Hex())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses := make(map[string]*model.DeliveryStatus, len(recipients))
	var delivered []string
	now := msg.CreatedAt

	for _, recipientID := range recipients {
		st := &model.DeliveryStatus{
			MessageID:   msg.ID,
			OrgID:       msg.OrgID,
			ScopeKey:    msg.ScopeKey,
			RecipientID: recipientID,
		}
		if online != nil && online(recipientID) {
			st.Delivered = true
			at := now
			st.DeliveredAt = &at
			delivered = append(delivered, recipientID)
		}
		if err := d.statuses.UpsertDeliveryStatus(ctx, st); err != nil {
			return nil, fmt.Errorf("%w: seed delivery status: %v", ErrUnavailable, err)
		}
		statuses[recipientID] = st
	}

	sh.messages[msg.ID.Hex()] = statuses
	return delivered, nil
}

// OnDeliveryAck advances (message, recipient) to delivered. A duplicate or
// late ack after read is a successful no-op: changed=false, no error.
func (d *DeliveryTracker) OnDeliveryAck(ctx context.Context, messageID primitive.ObjectID, orgID, scopeKey, recipientID string, at time.Time) (bool, error) {
	sh := d.shard(messageID.Hex())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses, err := d.loadLocked(ctx, sh, messageID)
	if err != nil {
		return false, err
	}

	st, ok := statuses[recipientID]
	if !ok {
		st = &model.DeliveryStatus{MessageID: messageID, OrgID: orgID, ScopeKey: scopeKey, RecipientID: recipientID}
		statuses[recipientID] = st
	}

	if st.Delivered {
		return false, nil
	}

	st.Delivered = true
	st.DeliveredAt = &at
	if err := d.statuses.UpsertDeliveryStatus(ctx, st); err != nil {
		st.Delivered = false
		st.DeliveredAt = nil
		return false, fmt.Errorf("%w: persist delivery ack: %v", ErrUnavailable, err)
	}
	return true, nil
}

// OnReadAck advances (message, recipient) to read. Read implies delivered:
// when delivered was never set it is set here with the same timestamp.
// Duplicate read acks are no-ops.
func (d *DeliveryTracker) OnReadAck(ctx context.Context, messageID primitive.ObjectID, orgID, scopeKey, recipientID string, at time.Time) (bool, error) {
	sh := d.shard(messageID.Hex())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses, err := d.loadLocked(ctx, sh, messageID)
	if err != nil {
		return false, err
	}

	st, ok := statuses[recipientID]
	if !ok {
		st = &model.DeliveryStatus{MessageID: messageID, OrgID: orgID, ScopeKey: scopeKey, RecipientID: recipientID}
		statuses[recipientID] = st
	}

	if st.Read {
		return false, nil
	}

	prev := *st
	st.Read = true
	st.ReadAt = &at
	if !st.Delivered {
		st.Delivered = true
		st.DeliveredAt = &at
	}
	if err := d.statuses.UpsertDeliveryStatus(ctx, st); err != nil {
		*st = prev
		return false, fmt.Errorf("%w: persist read ack: %v", ErrUnavailable, err)
	}
	return true, nil
}

// MarkScopeRead atomically advances every unread message in the scope for
// the user to read, all with the same timestamp. Replays change nothing and
// return no IDs, so callers emit at most one fan-out per message.
func (d *DeliveryTracker) MarkScopeRead(ctx context.Context, orgID, scopeKey, userID string, at time.Time) ([]primitive.ObjectID, error) {
	ids, err := d.statuses.BulkMarkRead(ctx, orgID, scopeKey, userID, at)
	if err != nil {
		return nil, fmt.Errorf("%w: bulk mark read: %v", ErrUnavailable, err)
	}

	for _, messageID := range ids {
		sh := d.shard(messageID.Hex())
		sh.mu.Lock()
		if statuses, ok := sh.messages[messageID.Hex()]; ok {
			if st, ok := statuses[userID]; ok && !st.Read {
				ts := at
				st.Read = true
				st.ReadAt = &ts
				if !st.Delivered {
					st.Delivered = true
					st.DeliveredAt = &ts
				}
			}
		}
		sh.mu.Unlock()
	}

	return ids, nil
}

// StatusFor returns the raw per-recipient map for a message.
func (d *DeliveryTracker) StatusFor(ctx context.Context, messageID primitive.ObjectID) (map[string]model.DeliveryStatus, error) {
	sh := d.shard(messageID.Hex())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	statuses, err := d.loadLocked(ctx, sh, messageID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.DeliveryStatus, len(statuses))
	for recipientID, st := range statuses {
		out[recipientID] = *st
	}
	return out, nil
}

// Aggregate derives the summary view of a message's statuses, for callers
// that want "read by at least one member" instead of the full roster.
func (d *DeliveryTracker) Aggregate(ctx context.Context, messageID primitive.ObjectID) (model.DeliverySummary, error) {
	statuses, err := d.StatusFor(ctx, messageID)
	if err != nil {
		return model.DeliverySummary{}, err
	}

	summary := model.DeliverySummary{
		Recipients:     len(statuses),
		ReadByAll:      len(statuses) > 0,
		DeliveredToAll: len(statuses) > 0,
	}
	for recipientID, st := range statuses {
		if st.Read {
			summary.ReadByAny = true
			summary.ReadBy = append(summary.ReadBy, recipientID)
		} else {
			summary.ReadByAll = false
		}
		if !st.Delivered {
			summary.DeliveredToAll = false
		}
	}
	d.logger.Debug("delivery aggregate",
		zap.String("message_id", messageID.Hex()),
		zap.Int("recipients", summary.Recipients),
		zap.Bool("read_by_any", summary.ReadByAny),
	)
	return summary, nil
}
