package hub

import (
	"context"
	"sync"
	"time"

	"Relay/internal/event"
	"Relay/internal/model"
	"Relay/internal/repo"

	"go.uber.org/zap"
)

const presencePersistTimeout = 5 * time.Second

// PresenceTracker derives online/offline state and last-seen timestamps from
// registry transitions. Broadcasts are debounced: a user flapping within the
// debounce window produces one broadcast carrying the final state, which
// keeps reconnect loops from storming the organization.
type PresenceTracker struct {
	mu      sync.Mutex
	records map[string]*model.PresenceRecord
	timers  map[string]*time.Timer
	stopped bool

	debounce  time.Duration
	statuses  repo.StatusRepository
	broadcast func(orgID string, env event.Envelope)
	logger    *zap.Logger
}

func NewPresenceTracker(statuses repo.StatusRepository, debounce time.Duration, logger *zap.Logger) *PresenceTracker {
	return &PresenceTracker{
		records:  make(map[string]*model.PresenceRecord),
		timers:   make(map[string]*time.Timer),
		debounce: debounce,
		statuses: statuses,
		logger:   logger,
	}
}

// SetBroadcast wires the org-wide fan-out used after the debounce window.
func (p *PresenceTracker) SetBroadcast(fn func(orgID string, env event.Envelope)) {
	p.broadcast = fn
}

// OnTransition applies a registry edge. The record is updated immediately so
// snapshots never lag the registry; only the broadcast is deferred. Last-seen
// is set on the offline edge and never moves backwards.
func (p *PresenceTracker) OnTransition(userID, orgID string, online bool, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	rec, ok := p.records[userID]
	if !ok {
		rec = &model.PresenceRecord{UserID: userID, OrgID: orgID}
		p.records[userID] = rec
	}
	rec.Online = online
	rec.UpdatedAt = at
	if !online && at.After(rec.LastSeen) {
		rec.LastSeen = at
	}

	if t, ok := p.timers[userID]; ok {
		t.Reset(p.debounce)
		return
	}
	p.timers[userID] = time.AfterFunc(p.debounce, func() {
		p.flush(userID)
	})
}

// flush persists and broadcasts the state that survived the debounce window.
func (p *PresenceTracker) flush(userID string) {
	p.mu.Lock()
	delete(p.timers, userID)
	rec, ok := p.records[userID]
	if !ok || p.stopped {
		p.mu.Unlock()
		return
	}
	snapshot := *rec
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), presencePersistTimeout)
	defer cancel()
	if err := p.statuses.UpsertPresence(ctx, &snapshot); err != nil {
		p.logger.Warn("failed to persist presence",
			zap.Error(err),
			zap.String("user_id", snapshot.UserID),
		)
	}

	if p.broadcast != nil {
		env := event.MustEnvelope(event.KindPresenceUpdate, event.PresenceUpdate{
			UserID:   snapshot.UserID,
			Online:   snapshot.Online,
			LastSeen: snapshot.LastSeen,
		})
		p.broadcast(snapshot.OrgID, env)
	}

	p.logger.Debug("presence flushed",
		zap.String("user_id", snapshot.UserID),
		zap.Bool("online", snapshot.Online),
	)
}

// Snapshot returns the live presence records for an organization. Records
// reflect the most recent transition applied; users never seen this process
// lifetime are absent and callers merge in the persisted store.
func (p *PresenceTracker) Snapshot(orgID string) []model.PresenceRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []model.PresenceRecord
	for _, rec := range p.records {
		if rec.OrgID == orgID {
			out = append(out, *rec)
		}
	}
	return out
}

// Record returns the live record for one user.
func (p *PresenceTracker) Record(userID string) (model.PresenceRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[userID]
	if !ok {
		return model.PresenceRecord{}, false
	}
	return *rec, true
}

// Stop cancels pending debounce timers.
func (p *PresenceTracker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for userID, t := range p.timers {
		t.Stop()
		delete(p.timers, userID)
	}
}
