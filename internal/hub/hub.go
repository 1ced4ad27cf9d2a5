package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Relay/internal/auth"
	"Relay/internal/event"
	"Relay/internal/model"
	"Relay/internal/repo"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Options holds the operational knobs of the realtime engine.
type Options struct {
	TypingExpiry     time.Duration
	PresenceDebounce time.Duration
	AllowedOrigins   []string
}

// Hub owns the realtime engine: connection registry, presence tracker,
// scope router, delivery state machine, typing coordinator, and the event
// dispatcher that binds them. One Hub per process.
type Hub struct {
	registry   *Registry
	presence   *PresenceTracker
	typing     *TypingCoordinator
	delivery   *DeliveryTracker
	router     *Router
	dispatcher *Dispatcher

	messages  repo.MessageRepository
	validator auth.TokenValidator
	upgrader  websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

func NewHub(
	opts Options,
	validator auth.TokenValidator,
	messages repo.MessageRepository,
	statuses repo.StatusRepository,
	groups repo.GroupRepository,
	tasks repo.TaskRepository,
	logger *zap.Logger,
) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		messages:  messages,
		validator: validator,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	h.registry = NewRegistry(logger)
	h.presence = NewPresenceTracker(statuses, opts.PresenceDebounce, logger)
	h.registry.SetTransitionFunc(h.presence.OnTransition)
	h.typing = NewTypingCoordinator(opts.TypingExpiry)
	h.delivery = NewDeliveryTracker(statuses, logger)
	h.router = NewRouter(h.registry, groups, tasks)
	h.dispatcher = NewDispatcher(
		h.registry, h.router, h.delivery, h.typing,
		messages, statuses, tasks, logger,
	)

	h.presence.SetBroadcast(func(orgID string, env event.Envelope) {
		for _, c := range h.registry.OrgConnections(orgID) {
			c.SafeSend(env, sendTimeout)
		}
	})

	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[o] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			_, ok := origins[r.Header.Get("Origin")]
			return ok
		},
	}

	return h
}

// ServeWS authenticates the handshake, upgrades the connection, and starts
// the client's pumps. Invalid credentials are rejected before the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	identity, err := h.validator.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(identity.UserID, identity.OrgID, conn, h)
	h.addClient(c)

	go c.ReadMessages()
	go c.WriteMessages()
}

func (h *Hub) addClient(c *Client) {
	h.registry.Register(c)
}

// removeClient deregisters synchronously: by the time it returns, no state
// mutation tied to this connection is accepted and the offline transition
// (if this was the last device) has been emitted.
func (h *Hub) removeClient(c *Client) {
	h.registry.Deregister(c)
	c.Close()
}

// PresenceSnapshot returns the live presence records for an organization.
func (h *Hub) PresenceSnapshot(orgID string) []model.PresenceRecord {
	return h.presence.Snapshot(orgID)
}

// AuthorizeScope verifies that the user may read a scope through the
// pull-based surface: the key parses under the user's organization and the
// user resolves as a participant. Same membership rules as the dispatcher.
func (h *Hub) AuthorizeScope(ctx context.Context, userID, orgID, scopeKey string) error {
	scope, err := ScopeFromRawKey(orgID, scopeKey)
	if err != nil {
		return err
	}
	recipients, err := h.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, userID) {
		return fmt.Errorf("%w: not a participant of this scope", ErrValidation)
	}
	return nil
}

// DeliveryStatus exposes the raw per-recipient map and aggregate summary for
// a message, for the pull-based HTTP surface. Only scope participants may
// read a roster; cross-organization messages are hidden as not-found.
func (h *Hub) DeliveryStatus(ctx context.Context, userID, orgID, messageID string) (map[string]model.DeliveryStatus, model.DeliverySummary, error) {
	id, err := parseObjectID(messageID)
	if err != nil {
		return nil, model.DeliverySummary{}, err
	}

	msg, err := h.messages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return nil, model.DeliverySummary{}, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return nil, model.DeliverySummary{}, fmt.Errorf("%w: load message: %v", ErrUnavailable, err)
	}
	if msg.OrgID != orgID {
		return nil, model.DeliverySummary{}, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if err := h.AuthorizeScope(ctx, userID, orgID, msg.ScopeKey); err != nil {
		return nil, model.DeliverySummary{}, err
	}

	statuses, err := h.delivery.StatusFor(ctx, id)
	if err != nil {
		return nil, model.DeliverySummary{}, err
	}
	summary, err := h.delivery.Aggregate(ctx, id)
	if err != nil {
		return nil, model.DeliverySummary{}, err
	}
	return statuses, summary, nil
}

func parseObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed message id", ErrValidation)
	}
	return id, nil
}

// PublishTaskEvent mirrors an externally-driven task lifecycle change
// (task_created, task_updated, task_deleted) to the task's audience.
func (h *Hub) PublishTaskEvent(kind string, task *model.Task) error {
	return h.dispatcher.BroadcastTask(kind, task)
}

// Stop shuts the engine down: cancels the hub context, closes every live
// connection, and stops the presence and typing timers.
func (h *Hub) Stop() {
	h.cancel()

	for _, c := range h.registry.AllClients() {
		h.registry.Deregister(c)
		c.Close()
	}

	h.typing.Stop()
	h.presence.Stop()
	h.logger.Info("hub stopped")
}
