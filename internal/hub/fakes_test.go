package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"Relay/internal/db"
	"Relay/internal/event"
	"Relay/internal/model"
	"Relay/internal/repo"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// In-memory repositories backing the engine under test.

type fakeStatusRepo struct {
	mu        sync.Mutex
	statuses  map[string]map[string]model.DeliveryStatus // messageID hex -> recipient
	presence  map[string]model.PresenceRecord
	inbox     map[string]map[string]*model.InboxEntry // userID -> scopeKey
	upsertErr error

	presenceUpserts int
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{
		statuses: make(map[string]map[string]model.DeliveryStatus),
		presence: make(map[string]model.PresenceRecord),
		inbox:    make(map[string]map[string]*model.InboxEntry),
	}
}

func (f *fakeStatusRepo) UpsertDeliveryStatus(_ context.Context, status *model.DeliveryStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := status.MessageID.Hex()
	m, ok := f.statuses[key]
	if !ok {
		m = make(map[string]model.DeliveryStatus)
		f.statuses[key] = m
	}
	m[status.RecipientID] = *status
	return nil
}

func (f *fakeStatusRepo) BulkMarkRead(_ context.Context, orgID, scopeKey, userID string, at time.Time) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	var ids []primitive.ObjectID
	for _, m := range f.statuses {
		st, ok := m[userID]
		if !ok || st.OrgID != orgID || st.ScopeKey != scopeKey || st.Read {
			continue
		}
		ts := at
		st.Read = true
		st.ReadAt = &ts
		st.Delivered = true
		if st.DeliveredAt == nil {
			st.DeliveredAt = &ts
		}
		m[userID] = st
		ids = append(ids, st.MessageID)
	}
	// Deterministic order for assertions.
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

func (f *fakeStatusRepo) UndeliveredFor(_ context.Context, orgID, scopeKey, userID string) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []primitive.ObjectID
	for _, m := range f.statuses {
		if st, ok := m[userID]; ok && st.OrgID == orgID && st.ScopeKey == scopeKey && !st.Delivered {
			ids = append(ids, st.MessageID)
		}
	}
	return ids, nil
}

func (f *fakeStatusRepo) StatusesFor(_ context.Context, messageID primitive.ObjectID) ([]model.DeliveryStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DeliveryStatus
	for _, st := range f.statuses[messageID.Hex()] {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeStatusRepo) UpsertPresence(_ context.Context, record *model.PresenceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence[record.UserID] = *record
	f.presenceUpserts++
	return nil
}

func (f *fakeStatusRepo) PresenceForOrg(_ context.Context, orgID string) ([]model.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PresenceRecord
	for _, rec := range f.presence {
		if rec.OrgID == orgID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStatusRepo) TouchInbox(_ context.Context, msg *model.Message, participants []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, userID := range participants {
		scopes, ok := f.inbox[userID]
		if !ok {
			scopes = make(map[string]*model.InboxEntry)
			f.inbox[userID] = scopes
		}
		entry, ok := scopes[msg.ScopeKey]
		if !ok {
			entry = &model.InboxEntry{UserID: userID, OrgID: msg.OrgID, ScopeKey: msg.ScopeKey, ScopeKind: msg.ScopeKind}
			scopes[msg.ScopeKey] = entry
		}
		entry.LastMessage = msg.Body
		entry.LastMessageAt = msg.CreatedAt
		if userID != msg.SenderID {
			entry.Unread++
		}
	}
	return nil
}

func (f *fakeStatusRepo) ResetUnread(_ context.Context, orgID, scopeKey, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.inbox[userID][scopeKey]; ok && entry.OrgID == orgID {
		entry.Unread = 0
	}
	return nil
}

func (f *fakeStatusRepo) UnreadTotal(_ context.Context, orgID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, entry := range f.inbox[userID] {
		if entry.OrgID == orgID {
			total += entry.Unread
		}
	}
	return total, nil
}

func (f *fakeStatusRepo) setUpsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertErr = err
}

func (f *fakeStatusRepo) presenceUpsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presenceUpserts
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID]model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[primitive.ObjectID]model.Message)}
}

func (f *fakeMessageRepo) InsertMessage(_ context.Context, msg *model.Message) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	f.messages[msg.ID] = *msg
	return msg.ID, nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrMessageNotFound
	}
	return &msg, nil
}

func (f *fakeMessageRepo) ApplyEdit(_ context.Context, id primitive.ObjectID, newBody string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return repo.ErrMessageNotFound
	}
	msg.Body = newBody
	msg.Edited = true
	msg.EditedAt = &at
	f.messages[id] = msg
	return nil
}

func (f *fakeMessageRepo) ApplyTombstone(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return repo.ErrMessageNotFound
	}
	msg.Body = ""
	msg.AttachmentRef = nil
	msg.Deleted = true
	msg.DeletedAt = &at
	f.messages[id] = msg
	return nil
}

func (f *fakeMessageRepo) AddReaction(_ context.Context, id primitive.ObjectID, reaction model.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return repo.ErrMessageNotFound
	}
	msg.Reactions = append(msg.Reactions, reaction)
	f.messages[id] = msg
	return nil
}

func (f *fakeMessageRepo) History(_ context.Context, orgID, scopeKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []model.Message
	for _, msg := range f.messages {
		if msg.OrgID == orgID && msg.ScopeKey == scopeKey {
			data = append(data, msg)
		}
	}
	// Newest first, matching the store's sort.
	sort.Slice(data, func(i, j int) bool { return data[i].CreatedAt.After(data[j].CreatedAt) })
	return &db.PaginatedResult[model.Message]{
		Data:       data,
		Total:      int64(len(data)),
		Page:       page,
		PageSize:   int64(len(data)),
		TotalPages: 1,
	}, nil
}

func (f *fakeMessageRepo) get(id primitive.ObjectID) (model.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	return msg, ok
}

func (f *fakeMessageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeGroupRepo struct {
	mu      sync.Mutex
	groups  map[string]model.Group
	failErr error
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[string]model.Group)}
}

func (f *fakeGroupRepo) put(id string, g model.Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id] = g
}

func (f *fakeGroupRepo) Get(_ context.Context, groupID string) (*model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	g, ok := f.groups[groupID]
	if !ok || !g.IsActive {
		return nil, repo.ErrGroupNotFound
	}
	return &g, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]model.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]model.Task)}
}

func (f *fakeTaskRepo) put(id string, t model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id] = t
}

func (f *fakeTaskRepo) Get(_ context.Context, taskID string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, repo.ErrTaskNotFound
	}
	return &t, nil
}

func (f *fakeTaskRepo) UpdateStatus(_ context.Context, taskID string, status string, at time.Time) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, repo.ErrTaskNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	f.tasks[taskID] = t
	return &t, nil
}

// testEngine assembles the realtime components over the fakes, without a
// socket server in front.
type testEngine struct {
	registry   *Registry
	router     *Router
	delivery   *DeliveryTracker
	typing     *TypingCoordinator
	dispatcher *Dispatcher

	messages *fakeMessageRepo
	statuses *fakeStatusRepo
	groups   *fakeGroupRepo
	tasks    *fakeTaskRepo
}

func newTestEngine() *testEngine {
	return newTestEngineWithLogger(zap.NewNop())
}

func newTestEngineWithLogger(logger *zap.Logger) *testEngine {
	e := &testEngine{
		messages: newFakeMessageRepo(),
		statuses: newFakeStatusRepo(),
		groups:   newFakeGroupRepo(),
		tasks:    newFakeTaskRepo(),
	}
	e.registry = NewRegistry(logger)
	e.router = NewRouter(e.registry, e.groups, e.tasks)
	e.delivery = NewDeliveryTracker(e.statuses, logger)
	e.typing = NewTypingCoordinator(3 * time.Second)
	e.dispatcher = NewDispatcher(
		e.registry, e.router, e.delivery, e.typing,
		e.messages, e.statuses, e.tasks, logger,
	)
	return e
}

// connect registers a connection for the user, with a buffered egress in
// place of a live socket.
func (e *testEngine) connect(userID, orgID string) *Client {
	c := newTestClient(userID, orgID)
	e.registry.Register(c)
	return c
}

func newTestClient(userID, orgID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		OrgID:      orgID,
		CreatedAt:  time.Now().UTC(),
		egress:     make(chan event.Envelope, 128),
		ctx:        ctx,
		cancel:     cancel,
		connClosed: make(chan struct{}),
		logger:     zap.NewNop(),
	}
}

// drain empties the client's egress queue.
func drain(c *Client) []event.Envelope {
	var out []event.Envelope
	for {
		select {
		case env := <-c.egress:
			out = append(out, env)
		default:
			return out
		}
	}
}

func ofKind(envs []event.Envelope, kind string) []event.Envelope {
	var out []event.Envelope
	for _, env := range envs {
		if env.Kind == kind {
			out = append(out, env)
		}
	}
	return out
}
