package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Relay/internal/event"
	"Relay/internal/model"
	"Relay/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const catchUpPage = 1 // most recent history page pushed to a late-joining device

// Dispatcher is the single entry and exit point for realtime events. Every
// inbound event goes validate -> apply -> fan out; a failure at any stage
// answers only the originating connection and fans out nothing. Persistence
// always precedes broadcast, so a mid-operation failure never delivers an
// event to some recipients and not others.
type Dispatcher struct {
	registry *Registry
	router   *Router
	delivery *DeliveryTracker
	typing   *TypingCoordinator

	messages repo.MessageRepository
	statuses repo.StatusRepository
	tasks    repo.TaskRepository

	logger *zap.Logger
}

func NewDispatcher(
	registry *Registry,
	router *Router,
	delivery *DeliveryTracker,
	typing *TypingCoordinator,
	messages repo.MessageRepository,
	statuses repo.StatusRepository,
	tasks repo.TaskRepository,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		router:   router,
		delivery: delivery,
		typing:   typing,
		messages: messages,
		statuses: statuses,
		tasks:    tasks,
		logger:   logger,
	}
}

// Dispatch routes one inbound event. Called from the connection's read pump,
// one event at a time, which preserves per-connection ordering.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, env event.Envelope) {
	if !event.Inbound(env.Kind) {
		d.reject(c, fmt.Errorf("%w: unknown event kind %q", ErrValidation, env.Kind))
		return
	}

	var err error
	switch env.Kind {
	case event.KindSendMessage:
		err = d.handleSend(ctx, c, env)
	case event.KindEditMessage:
		err = d.handleEdit(ctx, c, env)
	case event.KindDeleteMessage:
		err = d.handleDelete(ctx, c, env)
	case event.KindReactMessage:
		err = d.handleReact(ctx, c, env)
	case event.KindMarkRead:
		err = d.handleMarkRead(ctx, c, env)
	case event.KindMarkDelivered:
		err = d.handleMarkDelivered(ctx, c, env)
	case event.KindTyping:
		err = d.handleTyping(ctx, c, env)
	case event.KindJoinScope:
		err = d.handleJoinScope(ctx, c, env)
	case event.KindTaskStatusChanged:
		err = d.handleTaskStatus(ctx, c, env)
	case event.KindTaskComment:
		err = d.handleTaskComment(ctx, c, env)
	}

	if err != nil {
		d.reject(c, err)
	}
}

// reject answers the originating connection with an error event. Rejections
// never propagate past the single dispatch and never close the connection.
func (d *Dispatcher) reject(c *Client, err error) {
	code := "validation_error"
	retryable := false
	switch {
	case errors.Is(err, ErrNotFound):
		code = "not_found"
	case errors.Is(err, ErrUnavailable):
		code = "transient_unavailable"
		retryable = true
	}

	d.logger.Debug("event rejected",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.String("code", code),
		zap.Error(err),
	)

	env := event.MustEnvelope(event.KindError, event.ErrorPayload{
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
	})
	c.SafeSend(env, sendTimeout)
}

// -----------------------------------------------------------------------------
// Chat events
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleSend(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.SendMessage
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scope, err := d.scopeFromRef(c, payload.Scope)
	if err != nil {
		return err
	}
	if scope.Kind == ScopeTask {
		return fmt.Errorf("%w: task comments use %s", ErrValidation, event.KindTaskComment)
	}
	if payload.Content == "" && payload.AttachmentRef == nil {
		return fmt.Errorf("%w: message needs content or an attachment", ErrValidation)
	}

	msgType := payload.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}

	msg := &model.Message{
		ID:            primitive.NewObjectID(),
		OrgID:         c.OrgID,
		ScopeKind:     scope.Kind,
		ScopeKey:      scope.Key(),
		SenderID:      c.UserID,
		Type:          msgType,
		Body:          payload.Content,
		AttachmentRef: payload.AttachmentRef,
		CreatedAt:     time.Now().UTC(),
	}

	if payload.ReplyTo != "" {
		replyID, err := primitive.ObjectIDFromHex(payload.ReplyTo)
		if err != nil {
			return fmt.Errorf("%w: malformed reply reference", ErrValidation)
		}
		parent, err := d.loadScopedMessage(ctx, c, replyID)
		if err != nil {
			return err
		}
		if parent.ScopeKey != msg.ScopeKey {
			return fmt.Errorf("%w: reply target is in another scope", ErrValidation)
		}
		msg.ReplyTo = &replyID
	}

	return d.persistAndFanOutMessage(ctx, c, msg, recipients, event.KindMessageCreated)
}

// persistAndFanOutMessage is the shared apply+fan-out tail for chat messages
// and task comments: persist, seed delivery state, then broadcast.
func (d *Dispatcher) persistAndFanOutMessage(ctx context.Context, c *Client, msg *model.Message, recipients []string, kind string) error {
	if _, err := d.messages.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: persist message: %v", ErrUnavailable, err)
	}

	if err := d.statuses.TouchInbox(ctx, msg, recipients); err != nil {
		// Counters reconcile through the pull-based resync; the message
		// itself is already durable.
		d.logger.Warn("inbox update failed",
			zap.Error(err),
			zap.String("message_id", msg.ID.Hex()),
		)
	}

	var trackedRecipients []string
	for _, userID := range recipients {
		if userID != msg.SenderID {
			trackedRecipients = append(trackedRecipients, userID)
		}
	}

	deliveredTo, err := d.delivery.OnMessageCreated(ctx, msg, trackedRecipients, d.registry.IsOnline)
	if err != nil {
		return err
	}

	var out event.Envelope
	if kind == event.KindTaskCommentAdded {
		out = event.MustEnvelope(kind, event.TaskCommentAdded{
			TaskID:  strings.TrimPrefix(msg.ScopeKey, taskKeyPrefix),
			Comment: *msg,
		})
	} else {
		out = event.MustEnvelope(kind, event.MessageCreated{Message: *msg})
	}
	d.fanOut(recipients, out, "")

	for _, recipientID := range deliveredTo {
		update := event.MustEnvelope(event.KindDeliveryUpdate, event.DeliveryUpdate{
			MessageID:   msg.ID.Hex(),
			ScopeKey:    msg.ScopeKey,
			RecipientID: recipientID,
			DeliveredAt: msg.CreatedAt,
		})
		d.sendToUser(msg.SenderID, update)
	}
	return nil
}

func (d *Dispatcher) handleEdit(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.EditMessage
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if payload.NewContent == "" {
		return fmt.Errorf("%w: edit needs new content", ErrValidation)
	}

	msg, id, err := d.loadOwnMessage(ctx, c, payload.MessageID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := d.messages.ApplyEdit(ctx, id, payload.NewContent, now); err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return fmt.Errorf("%w: message %s", ErrNotFound, payload.MessageID)
		}
		return fmt.Errorf("%w: apply edit: %v", ErrUnavailable, err)
	}

	return d.fanOutToMessageScope(ctx, msg, event.MustEnvelope(event.KindMessageEdited, event.MessageEdited{
		MessageID: id.Hex(),
		ScopeKey:  msg.ScopeKey,
		NewBody:   payload.NewContent,
		EditedAt:  now,
	}))
}

func (d *Dispatcher) handleDelete(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.DeleteMessage
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msg, id, err := d.loadOwnMessage(ctx, c, payload.MessageID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := d.messages.ApplyTombstone(ctx, id, now); err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return fmt.Errorf("%w: message %s", ErrNotFound, payload.MessageID)
		}
		return fmt.Errorf("%w: apply tombstone: %v", ErrUnavailable, err)
	}

	return d.fanOutToMessageScope(ctx, msg, event.MustEnvelope(event.KindMessageDeleted, event.MessageDeleted{
		MessageID: id.Hex(),
		ScopeKey:  msg.ScopeKey,
		DeletedAt: now,
	}))
}

func (d *Dispatcher) handleReact(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.ReactMessage
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if payload.Emoji == "" {
		return fmt.Errorf("%w: reaction needs an emoji", ErrValidation)
	}

	id, err := primitive.ObjectIDFromHex(payload.MessageID)
	if err != nil {
		return fmt.Errorf("%w: malformed message id", ErrValidation)
	}
	msg, err := d.loadScopedMessage(ctx, c, id)
	if err != nil {
		return err
	}
	if msg.Deleted {
		return fmt.Errorf("%w: message %s", ErrNotFound, payload.MessageID)
	}

	scope, err := ScopeFromKey(msg.ScopeKind, msg.OrgID, msg.ScopeKey)
	if err != nil {
		return err
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, c.UserID) {
		return fmt.Errorf("%w: not a participant of this scope", ErrValidation)
	}

	reaction := model.Reaction{UserID: c.UserID, Emoji: payload.Emoji, CreatedAt: time.Now().UTC()}
	if err := d.messages.AddReaction(ctx, id, reaction); err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return fmt.Errorf("%w: message %s", ErrNotFound, payload.MessageID)
		}
		return fmt.Errorf("%w: add reaction: %v", ErrUnavailable, err)
	}

	d.fanOut(recipients, event.MustEnvelope(event.KindReactionAdded, event.ReactionAdded{
		MessageID: id.Hex(),
		ScopeKey:  msg.ScopeKey,
		UserID:    c.UserID,
		Emoji:     payload.Emoji,
		CreatedAt: reaction.CreatedAt,
	}), "")
	return nil
}

// -----------------------------------------------------------------------------
// Delivery and read acknowledgments
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleMarkRead(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.MarkRead
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scope, err := d.scopeFromRef(c, payload.Scope)
	if err != nil {
		return err
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, c.UserID) {
		return fmt.Errorf("%w: not a participant of this scope", ErrValidation)
	}

	now := time.Now().UTC()
	ids, err := d.delivery.MarkScopeRead(ctx, c.OrgID, scope.Key(), c.UserID, now)
	if err != nil {
		return err
	}

	if err := d.statuses.ResetUnread(ctx, c.OrgID, scope.Key(), c.UserID); err != nil {
		d.logger.Warn("reset unread failed",
			zap.Error(err),
			zap.String("scope_key", scope.Key()),
			zap.String("user_id", c.UserID),
		)
	}

	// A replayed mark_read finds nothing unread and fans out nothing.
	for _, messageID := range ids {
		d.fanOut(recipients, event.MustEnvelope(event.KindReadUpdate, event.ReadUpdate{
			MessageID:   messageID.Hex(),
			ScopeKey:    scope.Key(),
			RecipientID: c.UserID,
			ReadAt:      now,
		}), "")
	}
	return nil
}

func (d *Dispatcher) handleMarkDelivered(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.MarkDelivered
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	id, err := primitive.ObjectIDFromHex(payload.MessageID)
	if err != nil {
		return fmt.Errorf("%w: malformed message id", ErrValidation)
	}
	msg, err := d.loadScopedMessage(ctx, c, id)
	if err != nil {
		return err
	}

	scope, err := ScopeFromKey(msg.ScopeKind, msg.OrgID, msg.ScopeKey)
	if err != nil {
		return err
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, c.UserID) {
		return fmt.Errorf("%w: not a participant of this scope", ErrValidation)
	}

	now := time.Now().UTC()
	changed, err := d.delivery.OnDeliveryAck(ctx, id, msg.OrgID, msg.ScopeKey, c.UserID, now)
	if err != nil {
		return err
	}
	if !changed {
		// Duplicate ack: successful no-op, nothing fans out.
		return nil
	}

	d.fanOut(recipients, event.MustEnvelope(event.KindDeliveryUpdate, event.DeliveryUpdate{
		MessageID:   id.Hex(),
		ScopeKey:    msg.ScopeKey,
		RecipientID: c.UserID,
		DeliveredAt: now,
	}), "")
	return nil
}

// -----------------------------------------------------------------------------
// Typing and scope membership
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleTyping(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.Typing
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scope, err := d.scopeFromRef(c, payload.Scope)
	if err != nil {
		return err
	}
	if scope.Kind == ScopeTask {
		return fmt.Errorf("%w: typing is chat-only", ErrValidation)
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, c.UserID) {
		return fmt.Errorf("%w: not a participant of this scope", ErrValidation)
	}

	d.typing.Signal(scope.Key(), c.UserID)

	// The typer's own devices already know; everyone else gets the signal.
	d.fanOut(recipients, event.MustEnvelope(event.KindTypingUpdate, event.TypingUpdate{
		ScopeKey: scope.Key(),
		UserID:   c.UserID,
	}), c.UserID)
	return nil
}

func (d *Dispatcher) handleJoinScope(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.JoinScope
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scope, err := d.scopeFromRef(c, payload.Scope)
	if err != nil {
		return err
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	if !contains(recipients, c.UserID) {
		return fmt.Errorf("%w: not a member of this scope", ErrValidation)
	}

	return d.catchUp(ctx, c, scope)
}

// catchUp pushes the most recent history page to a late-joining device so a
// connection that registered after a message was sent still receives it, and
// advances delivery state for anything not yet delivered to this user. Both
// reads are scoped to the connection's organization: a scope key is only
// meaningful inside one org, and a colliding key must never replay across.
func (d *Dispatcher) catchUp(ctx context.Context, c *Client, scope Scope) error {
	page, err := d.messages.History(ctx, c.OrgID, scope.Key(), catchUpPage)
	if err != nil {
		return fmt.Errorf("%w: history: %v", ErrUnavailable, err)
	}

	undelivered, err := d.statuses.UndeliveredFor(ctx, c.OrgID, scope.Key(), c.UserID)
	if err != nil {
		return fmt.Errorf("%w: undelivered lookup: %v", ErrUnavailable, err)
	}
	pending := make(map[primitive.ObjectID]struct{}, len(undelivered))
	for _, id := range undelivered {
		pending[id] = struct{}{}
	}

	// History pages are newest-first; replay oldest-first.
	now := time.Now().UTC()
	for i := len(page.Data) - 1; i >= 0; i-- {
		msg := page.Data[i]
		c.SafeSend(event.MustEnvelope(event.KindMessageCreated, event.MessageCreated{Message: msg}), sendTimeout)

		if _, ok := pending[msg.ID]; !ok {
			continue
		}
		changed, err := d.delivery.OnDeliveryAck(ctx, msg.ID, msg.OrgID, msg.ScopeKey, c.UserID, now)
		if err != nil {
			// The replay itself already succeeded; the ack lands on a
			// later signal.
			d.logger.Warn("catch-up delivery ack failed",
				zap.Error(err),
				zap.String("message_id", msg.ID.Hex()),
				zap.String("user_id", c.UserID),
			)
			continue
		}
		if !changed {
			continue
		}
		d.sendToUser(msg.SenderID, event.MustEnvelope(event.KindDeliveryUpdate, event.DeliveryUpdate{
			MessageID:   msg.ID.Hex(),
			ScopeKey:    msg.ScopeKey,
			RecipientID: c.UserID,
			DeliveredAt: now,
		}))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Task events
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleTaskStatus(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.TaskStatusChange
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !model.ValidTaskStatus(payload.NewStatus) {
		return fmt.Errorf("%w: unknown task status %q", ErrValidation, payload.NewStatus)
	}

	task, err := d.loadScopedTask(ctx, c, payload.TaskID)
	if err != nil {
		return err
	}
	audience := task.Audience()
	if !contains(audience, c.UserID) {
		return fmt.Errorf("%w: not part of this task's audience", ErrValidation)
	}

	updated, err := d.tasks.UpdateStatus(ctx, payload.TaskID, payload.NewStatus, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrTaskNotFound) {
			return fmt.Errorf("%w: task %s", ErrNotFound, payload.TaskID)
		}
		return fmt.Errorf("%w: update task: %v", ErrUnavailable, err)
	}

	d.fanOut(audience, event.MustEnvelope(event.KindTaskStatusChangedOut, event.TaskEvent{Task: *updated}), "")
	return nil
}

func (d *Dispatcher) handleTaskComment(ctx context.Context, c *Client, env event.Envelope) error {
	var payload event.TaskComment
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if payload.Content == "" {
		return fmt.Errorf("%w: comment needs content", ErrValidation)
	}

	task, err := d.loadScopedTask(ctx, c, payload.TaskID)
	if err != nil {
		return err
	}
	audience := task.Audience()
	if !contains(audience, c.UserID) {
		return fmt.Errorf("%w: not part of this task's audience", ErrValidation)
	}

	scope := TaskScope(c.OrgID, payload.TaskID)
	msg := &model.Message{
		ID:        primitive.NewObjectID(),
		OrgID:     c.OrgID,
		ScopeKind: ScopeTask,
		ScopeKey:  scope.Key(),
		SenderID:  c.UserID,
		Type:      model.MessageTypeComment,
		Body:      payload.Content,
		CreatedAt: time.Now().UTC(),
	}

	return d.persistAndFanOutMessage(ctx, c, msg, audience, event.KindTaskCommentAdded)
}

// BroadcastTask mirrors a task lifecycle change driven by the external CRUD
// surface (create, update, delete) to the task's audience.
func (d *Dispatcher) BroadcastTask(kind string, task *model.Task) error {
	switch kind {
	case event.KindTaskCreated, event.KindTaskUpdated, event.KindTaskDeleted:
	default:
		return fmt.Errorf("%w: not a task lifecycle kind: %q", ErrValidation, kind)
	}
	d.fanOut(task.Audience(), event.MustEnvelope(kind, event.TaskEvent{Task: *task}), "")
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (d *Dispatcher) scopeFromRef(c *Client, ref event.ScopeRef) (Scope, error) {
	switch ref.Kind {
	case ScopeDirect:
		if ref.Peer == "" {
			return Scope{}, fmt.Errorf("%w: direct scope needs a peer", ErrValidation)
		}
		return DirectScope(c.OrgID, c.UserID, ref.Peer), nil
	case ScopeGroup:
		if ref.GroupID == "" {
			return Scope{}, fmt.Errorf("%w: group scope needs a group id", ErrValidation)
		}
		return GroupScope(c.OrgID, ref.GroupID), nil
	case ScopeTask:
		if ref.TaskID == "" {
			return Scope{}, fmt.Errorf("%w: task scope needs a task id", ErrValidation)
		}
		return TaskScope(c.OrgID, ref.TaskID), nil
	default:
		return Scope{}, fmt.Errorf("%w: unknown scope kind %q", ErrValidation, ref.Kind)
	}
}

// loadScopedMessage loads a message and hides cross-org documents behind
// not-found, so existence never leaks across organizations.
func (d *Dispatcher) loadScopedMessage(ctx context.Context, c *Client, id primitive.ObjectID) (*model.Message, error) {
	msg, err := d.messages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return nil, fmt.Errorf("%w: message %s", ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: load message: %v", ErrUnavailable, err)
	}
	if msg.OrgID != c.OrgID {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, id.Hex())
	}
	return msg, nil
}

// loadOwnMessage additionally enforces that only the original sender may
// mutate (edit, delete) a message.
func (d *Dispatcher) loadOwnMessage(ctx context.Context, c *Client, rawID string) (*model.Message, primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, primitive.NilObjectID, fmt.Errorf("%w: malformed message id", ErrValidation)
	}
	msg, err := d.loadScopedMessage(ctx, c, id)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if msg.SenderID != c.UserID {
		return nil, primitive.NilObjectID, fmt.Errorf("%w: only the sender may modify a message", ErrValidation)
	}
	if msg.Deleted {
		return nil, primitive.NilObjectID, fmt.Errorf("%w: message %s", ErrNotFound, rawID)
	}
	return msg, id, nil
}

func (d *Dispatcher) loadScopedTask(ctx context.Context, c *Client, taskID string) (*model.Task, error) {
	task, err := d.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrTaskNotFound) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return nil, fmt.Errorf("%w: load task: %v", ErrUnavailable, err)
	}
	if task.OrgID != c.OrgID {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	return task, nil
}

func (d *Dispatcher) fanOutToMessageScope(ctx context.Context, msg *model.Message, env event.Envelope) error {
	scope, err := ScopeFromKey(msg.ScopeKind, msg.OrgID, msg.ScopeKey)
	if err != nil {
		return err
	}
	recipients, err := d.router.ResolveRecipients(ctx, scope)
	if err != nil {
		return err
	}
	d.fanOut(recipients, env, "")
	return nil
}

// fanOut delivers an event to every live connection of the recipients,
// optionally excluding one user.
func (d *Dispatcher) fanOut(recipients []string, env event.Envelope, excludeUser string) {
	for _, userID := range recipients {
		if userID == excludeUser {
			continue
		}
		d.sendToUser(userID, env)
	}
}

func (d *Dispatcher) sendToUser(userID string, env event.Envelope) {
	for _, conn := range d.registry.Connections(userID) {
		conn.SafeSend(env, sendTimeout)
	}
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
