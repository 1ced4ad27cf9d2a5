package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"Relay/internal/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait      = 10 * time.Second    // time allowed to write a message to the peer
	pongWait       = 20 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval   = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize = 64 * 1024           // max inbound message size (64KB)
	sendBufSize    = 256                 // per-connection outbound buffer size
	sendTimeout    = 2 * time.Second     // timeout for enqueuing outbound messages
	kickOnFull     = true                // when true, disconnect client when egress is full
)

// Client is one live realtime connection. A connection belongs to exactly one
// user and one organization; a user may hold several (multi-device). Inbound
// events are dispatched synchronously from the read pump, so events sent on
// one connection are applied and fanned out in wire order.
type Client struct {
	ID        string
	UserID    string
	OrgID     string
	CreatedAt time.Time

	conn   *websocket.Conn
	hub    *Hub
	egress chan event.Envelope

	ctx            context.Context
	cancel         context.CancelFunc
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex

	logger *zap.Logger
}

func newClient(userID, orgID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		OrgID:      orgID,
		CreatedAt:  time.Now().UTC(),
		conn:       conn,
		hub:        h,
		egress:     make(chan event.Envelope, sendBufSize),
		ctx:        ctx,
		cancel:     cancel,
		connClosed: make(chan struct{}),
		logger:     h.logger,
	}
}

// ReadMessages pumps inbound events off the socket and dispatches each one
// before reading the next. Deregistration happens synchronously on exit,
// before any further state tied to this connection can be observed.
func (c *Client) ReadMessages() {
	defer func() {
		c.hub.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var env event.Envelope
			if err := c.conn.ReadJSON(&env); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.logger.Info("client disconnected", zap.String("conn_id", c.ID))
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					c.logger.Warn("unexpected close", zap.String("conn_id", c.ID), zap.Error(err))
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.logger.Info("client timed out", zap.String("conn_id", c.ID))
					return
				}

				c.logger.Warn("read error", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}

			c.hub.dispatcher.Dispatch(c.ctx, c, env)
		}
	}
}

// WriteMessages pumps the egress queue onto the socket and keeps the
// connection alive with pings.
func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case env, ok := <-c.egress:
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
					c.logger.Debug("close write failed", zap.String("conn_id", c.ID), zap.Error(err))
				}
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Warn("write error", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// SafeSend attempts to enqueue an event for this connection. Returns false
// if the client is closed or the egress queue stays full past the timeout.
func (c *Client) SafeSend(env event.Envelope, timeout time.Duration) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- env:
		return true
	case <-time.After(timeout):
		if kickOnFull {
			c.logger.Warn("egress full, disconnecting client", zap.String("conn_id", c.ID))
			c.hub.removeClient(c)
		}
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()
		close(c.egress)

		if c.conn == nil {
			return
		}

		// Wait for WriteMessages to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				c.logger.Warn("safety timeout: force closed connection", zap.String("conn_id", c.ID))
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
