package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Relay/internal/hub"
	"Relay/internal/model"
	"Relay/internal/repo"

	"github.com/gin-gonic/gin"
)

// RealtimeHandler is the pull-based resync surface: clients that reconnect
// fetch history, presence, and counters here instead of re-deriving state
// from the event stream.
type RealtimeHandler interface {
	GetScopeMessages(c *gin.Context)
	GetPresence(c *gin.Context)
	GetUnreadCount(c *gin.Context)
	GetDeliveryStatus(c *gin.Context)
}

type realtimeHandler struct {
	messages repo.MessageRepository
	statuses repo.StatusRepository
	hub      *hub.Hub
}

func NewRealtimeHandler(messages repo.MessageRepository, statuses repo.StatusRepository, h *hub.Hub) RealtimeHandler {
	return &realtimeHandler{
		messages: messages,
		statuses: statuses,
		hub:      h,
	}
}

// GetScopeMessages serves one history page. The requester must resolve as a
// participant of the scope under their own organization, mirroring the
// realtime dispatch checks.
func (h *realtimeHandler) GetScopeMessages(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	scopeKey := c.Param("scopeKey")
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}

	if err := h.hub.AuthorizeScope(c.Request.Context(), identity.UserID, identity.OrgID, scopeKey); err != nil {
		abortScopeError(c, err)
		return
	}

	msgs, err := h.messages.History(c.Request.Context(), identity.OrgID, scopeKey, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func abortScopeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, hub.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, hub.ErrValidation):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this scope"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporarily unavailable"})
	}
}

// GetPresence merges persisted records with the live tracker. Live state
// wins: the store may lag one debounce window behind.
func (h *realtimeHandler) GetPresence(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	stored, err := h.statuses.PresenceForOrg(c.Request.Context(), identity.OrgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get presence"})
		return
	}

	merged := make(map[string]model.PresenceRecord, len(stored))
	for _, rec := range stored {
		merged[rec.UserID] = rec
	}
	for _, rec := range h.hub.PresenceSnapshot(identity.OrgID) {
		merged[rec.UserID] = rec
	}

	out := make([]model.PresenceRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}

	c.JSON(http.StatusOK, gin.H{"presence": out})
}

func (h *realtimeHandler) GetUnreadCount(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	total, err := h.statuses.UnreadTotal(c.Request.Context(), identity.OrgID, identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": total})
}

// GetDeliveryStatus exposes both fidelity levels: the raw per-recipient map
// and the aggregate summary. Participant-only, enforced by the hub.
func (h *realtimeHandler) GetDeliveryStatus(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	statuses, summary, err := h.hub.DeliveryStatus(c.Request.Context(), identity.UserID, identity.OrgID, c.Param("messageId"))
	if err != nil {
		abortScopeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses": statuses,
		"summary":  summary,
	})
}
