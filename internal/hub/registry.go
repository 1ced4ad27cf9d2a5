package hub

import (
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const registryShards = 32 // tune: 16/64/128 depending on load

// TransitionFunc receives presence edge events: online=true when a user's
// first connection registers, online=false when the last one leaves.
type TransitionFunc func(userID, orgID string, online bool, at time.Time)

type registryShard struct {
	mu    sync.RWMutex
	users map[string]map[string]*Client // userID -> connID -> client
}

// Registry tracks live connections per user and per organization. It is the
// single source of truth for "who is connected"; presence, routing, and
// delivery all query it.
type Registry struct {
	shards [registryShards]*registryShard

	orgMu sync.RWMutex
	orgs  map[string]map[string]struct{} // orgID -> online userIDs

	onTransition TransitionFunc
	logger       *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		orgs:   make(map[string]map[string]struct{}),
		logger: logger,
	}
	for i := 0; i < registryShards; i++ {
		r.shards[i] = &registryShard{users: make(map[string]map[string]*Client)}
	}
	return r
}

// SetTransitionFunc wires the presence tracker. Must be called before any
// Register; the callback runs under the user's shard lock so edge detection
// and emission are serialized per user.
func (r *Registry) SetTransitionFunc(fn TransitionFunc) {
	r.onTransition = fn
}

func (r *Registry) shard(userID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%registryShards]
}

// Register adds the connection and reports whether the user just came online
// (zero connections before). The came-online transition, if any, is emitted
// before Register returns.
func (r *Registry) Register(c *Client) bool {
	sh := r.shard(c.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	conns, ok := sh.users[c.UserID]
	if !ok {
		conns = make(map[string]*Client)
		sh.users[c.UserID] = conns
	}
	conns[c.ID] = c
	cameOnline := len(conns) == 1

	if cameOnline {
		r.orgMu.Lock()
		users, ok := r.orgs[c.OrgID]
		if !ok {
			users = make(map[string]struct{})
			r.orgs[c.OrgID] = users
		}
		users[c.UserID] = struct{}{}
		r.orgMu.Unlock()

		if r.onTransition != nil {
			r.onTransition(c.UserID, c.OrgID, true, time.Now().UTC())
		}
	}

	r.logger.Info("connection registered",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.String("org_id", c.OrgID),
		zap.Bool("came_online", cameOnline),
	)
	return cameOnline
}

// Deregister removes the connection and reports whether the user went
// offline (last connection gone). The went-offline transition carries the
// removal timestamp and is emitted before Deregister returns.
func (r *Registry) Deregister(c *Client) bool {
	sh := r.shard(c.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	conns, ok := sh.users[c.UserID]
	if !ok {
		return false
	}
	if _, exists := conns[c.ID]; !exists {
		return false
	}
	delete(conns, c.ID)

	wentOffline := len(conns) == 0
	if wentOffline {
		delete(sh.users, c.UserID)

		r.orgMu.Lock()
		if users, ok := r.orgs[c.OrgID]; ok {
			delete(users, c.UserID)
			if len(users) == 0 {
				delete(r.orgs, c.OrgID)
			}
		}
		r.orgMu.Unlock()

		if r.onTransition != nil {
			r.onTransition(c.UserID, c.OrgID, false, time.Now().UTC())
		}
	}

	r.logger.Info("connection deregistered",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.Bool("went_offline", wentOffline),
	)
	return wentOffline
}

// Connections returns the user's live connections.
func (r *Registry) Connections(userID string) []*Client {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	conns := sh.users[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.users[userID]) > 0
}

// UserOrg returns the organization of a user's live connections, if any.
func (r *Registry) UserOrg(userID string) (string, bool) {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	for _, c := range sh.users[userID] {
		return c.OrgID, true
	}
	return "", false
}

// OrgConnections returns every live connection in the organization.
func (r *Registry) OrgConnections(orgID string) []*Client {
	r.orgMu.RLock()
	userIDs := make([]string, 0, len(r.orgs[orgID]))
	for userID := range r.orgs[orgID] {
		userIDs = append(userIDs, userID)
	}
	r.orgMu.RUnlock()

	var out []*Client
	for _, userID := range userIDs {
		out = append(out, r.Connections(userID)...)
	}
	return out
}

// AllClients returns every live connection, for shutdown.
func (r *Registry) AllClients() []*Client {
	var out []*Client
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, conns := range sh.users {
			for _, c := range conns {
				out = append(out, c)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}
