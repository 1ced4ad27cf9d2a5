package hub

import (
	"sync"
	"time"
)

type typerEntry struct {
	timer    *time.Timer
	deadline time.Time
}

// TypingCoordinator holds ephemeral typing signals per (scope, user).
// Nothing is persisted and there is no explicit stop event: a signal arms a
// quiescence timer, any new signal from the same pair resets it (never
// stacks a second timer), and expiry is the only removal path.
type TypingCoordinator struct {
	mu      sync.Mutex
	expiry  time.Duration
	entries map[string]map[string]*typerEntry // scopeKey -> userID
	stopped bool
}

func NewTypingCoordinator(expiry time.Duration) *TypingCoordinator {
	return &TypingCoordinator{
		expiry:  expiry,
		entries: make(map[string]map[string]*typerEntry),
	}
}

// Signal records that userID is typing in the scope, resetting the expiry
// window for that pair.
func (t *TypingCoordinator) Signal(scopeKey, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	scope, ok := t.entries[scopeKey]
	if !ok {
		scope = make(map[string]*typerEntry)
		t.entries[scopeKey] = scope
	}

	deadline := time.Now().Add(t.expiry)
	if e, ok := scope[userID]; ok {
		e.deadline = deadline
		e.timer.Reset(t.expiry)
		return
	}

	scope[userID] = &typerEntry{
		deadline: deadline,
		timer: time.AfterFunc(t.expiry, func() {
			t.expire(scopeKey, userID)
		}),
	}
}

func (t *TypingCoordinator) expire(scopeKey, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	scope, ok := t.entries[scopeKey]
	if !ok {
		return
	}
	e, ok := scope[userID]
	if !ok {
		return
	}
	// A Reset that raced the firing leaves a live deadline; re-arm for it.
	if remaining := time.Until(e.deadline); remaining > 0 {
		e.timer.Reset(remaining)
		return
	}

	e.timer.Stop()
	delete(scope, userID)
	if len(scope) == 0 {
		delete(t.entries, scopeKey)
	}
}

// ActiveTypers returns who is currently typing in the scope, pruning any
// entry whose window already lapsed.
func (t *TypingCoordinator) ActiveTypers(scopeKey string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	scope, ok := t.entries[scopeKey]
	if !ok {
		return nil
	}

	now := time.Now()
	var out []string
	for userID, e := range scope {
		if now.Before(e.deadline) {
			out = append(out, userID)
		} else {
			e.timer.Stop()
			delete(scope, userID)
		}
	}
	if len(scope) == 0 {
		delete(t.entries, scopeKey)
	}
	return out
}

// Stop cancels all pending timers.
func (t *TypingCoordinator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for scopeKey, scope := range t.entries {
		for userID, e := range scope {
			e.timer.Stop()
			delete(scope, userID)
		}
		delete(t.entries, scopeKey)
	}
}
