/*
Package chat contains the core of the chat room: presence tracking, the login and
disconnect protocol, message relay, and fan-out to connected clients.

This file defines the Client struct, an active WebSocket connection. It runs the
read and write loops (ReadPump and WritePump), rejects malformed frames locally, and
hands well-formed events to the Room.
*/
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"kchat/internal/pkg/errs"
	"kchat/internal/pkg/logx"
	"kchat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10
)

// Client struct represents an active WebSocket connection.
// It implements Conn. The user it logs in as is tracked by the Room, not here.
type Client struct {
	id string

	room *Room

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// buffered queue of encoded frames waiting to be written.
	send chan []byte

	// mu guards closed and the close of send.
	mu     sync.Mutex
	closed bool

	// messageLimiter throttles sendMessage events from this connection.
	messageLimiter *rate.Limiter

	logger zerolog.Logger
}

// NewClient constructs a Client for wsConn using the room's connection settings.
func NewClient(room *Room, wsConn *websocket.Conn) *Client {
	cfg := room.Config()
	id := randx.ConnectionID()

	return &Client{
		id:             id,
		room:           room,
		conn:           wsConn,
		send:           make(chan []byte, cfg.SendQueueSize),
		messageLimiter: rate.NewLimiter(rate.Limit(cfg.MessageRate), cfg.MessageBurst),
		logger:         logx.Component("client").With().Str("conn_id", id).Logger(),
	}
}

// ID implements Conn.
func (c *Client) ID() string {
	return c.id
}

// Enqueue implements Conn. It never blocks.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return false
	}
}

// Close implements Conn. It closes the send queue, which makes WritePump send a close
// frame and tear the socket down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames until the connection fails or closes, then runs the room's
// disconnect path. It must run on its own goroutine per connection.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.room.Config().MaxMessageBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			return
		}

		if !c.processInboundFrame(frame) {
			return
		}
	}
}

// cleanupOnDisconnect runs when ReadPump ends, for an explicit close or an abrupt loss alike.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.room.Unregister(c)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame parses one frame and forwards it to the room.
// It returns false once the room has stopped.
func (c *Client) processInboundFrame(frame []byte) bool {
	env, err := ParseEnvelope(frame)
	if err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frame)).Msg("Client sent invalid frame")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return true
	}

	if env.Event == EventSendMessage && !c.messageLimiter.Allow() {
		c.logger.Warn().Msg("Client message rate limit exceeded, dropping message")
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return true
	}

	if err := c.room.Dispatch(c, env.Event, env.Data); err != nil {
		c.logger.Info().Err(err).Msg("Room rejected event")
		return false
	}
	return true
}

// SendError queues an error event for this client only.
func (c *Client) SendError(err error) {
	frame, encodeErr := EncodeFrame(EventError, errorPayloadFrom(err))
	if encodeErr != nil {
		c.logger.Error().Err(encodeErr).Msg("Failed to build error frame")
		return
	}

	if !c.Enqueue(frame) {
		c.logger.Warn().Msg("Failed to queue error frame")
	}
}

// WritePump writes queued frames and periodic pings until the send queue is closed
// or a write fails. It must run on its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame, or a close message once the queue is closed.
// It returns false when WritePump should stop.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
