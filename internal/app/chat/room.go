/*
Package chat contains the core of the chat room: presence tracking, the login and
disconnect protocol, message relay, and fan-out to connected clients.

This file defines the Room, the single chat room of the server. The Room runs one
event loop that owns the Registry, the open connections, and the table binding each
connection to the user it logged in as. Logins, disconnects, relayed messages, and
presence queries are all processed by that loop, one at a time, in arrival order.
*/
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"kchat/internal/app/user"
	"kchat/internal/configs"
	"kchat/internal/pkg/errs"
	"kchat/internal/pkg/logx"
	"kchat/internal/pkg/req"
)

// ErrRoomStopped is returned by Room operations after Stop.
var ErrRoomStopped = errors.New("chat: room stopped")

// inboundEvent is a client event waiting for the Room loop.
type inboundEvent struct {
	conn  Conn
	event EventName
	data  json.RawMessage
}

// Room struct represents the chat room and its presence state.
type Room struct {
	// registry holds the logged-in users. Only the Run goroutine touches it.
	registry *Registry

	// clients is the fan-out set of open connections, logged in or not.
	clients *Broadcaster

	// bindings maps a connection ID to the user that connection logged in as.
	bindings map[string]user.User

	// config holds the read-only settings shared with Clients.
	config *configs.AppConfig

	register   chan Conn
	unregister chan Conn
	inbound    chan inboundEvent
	queries    chan chan []user.User

	// stopChan is closed by Stop; done is closed when Run returns.
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewRoom creates a Room. Call Run to start processing events.
func NewRoom(cfg *configs.AppConfig) *Room {
	roomLogger := logx.Component("room")

	return &Room{
		registry:   NewRegistry(),
		clients:    NewBroadcaster(roomLogger),
		bindings:   make(map[string]user.User),
		config:     cfg,
		register:   make(chan Conn),
		unregister: make(chan Conn),
		inbound:    make(chan inboundEvent),
		queries:    make(chan chan []user.User),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     roomLogger,
	}
}

// Config returns the settings the Room was created with.
func (r *Room) Config() *configs.AppConfig {
	return r.config
}

// Run processes room events until Stop is called. On return every open connection is closed.
func (r *Room) Run() {
	defer func() {
		r.clients.CloseAll()
		r.logger.Info().Msg("Room Run loop finished.")
		close(r.done)
	}()

	r.logger.Info().Msg("Room Run loop started.")

	for {
		select {
		case conn := <-r.register:
			r.clients.Add(conn)
			r.logger.Debug().
				Str("conn_id", conn.ID()).
				Int("total_conns", r.clients.Len()).
				Msg("Connection opened.")

		case conn := <-r.unregister:
			r.handleDisconnect(conn)

		case in := <-r.inbound:
			r.handleInbound(in)

		case reply := <-r.queries:
			reply <- r.registry.Snapshot()

		case <-r.stopChan:
			r.logger.Info().Msg("Room stop initiated.")
			return
		}
	}
}

// Stop signals the Run loop to exit. It does not wait; use Done for that.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Done is closed once the Run loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Register adds conn to the room's open connections in the unauthenticated state.
func (r *Room) Register(conn Conn) error {
	select {
	case r.register <- conn:
		return nil
	case <-r.stopChan:
		return ErrRoomStopped
	}
}

// Unregister runs the disconnect path for conn. Calling it more than once is harmless.
func (r *Room) Unregister(conn Conn) {
	select {
	case r.unregister <- conn:
	case <-r.stopChan:
	}
}

// Dispatch hands one client event to the room loop.
func (r *Room) Dispatch(conn Conn, event EventName, data json.RawMessage) error {
	select {
	case r.inbound <- inboundEvent{conn: conn, event: event, data: data}:
		return nil
	case <-r.stopChan:
		return ErrRoomStopped
	}
}

// Users returns the current presence snapshot as seen by the room loop.
// Every event handed to the room before Users was called has been fully processed
// by the time it returns.
func (r *Room) Users(ctx context.Context) ([]user.User, error) {
	reply := make(chan []user.User, 1)

	select {
	case r.queries <- reply:
	case <-r.stopChan:
		return nil, ErrRoomStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case users := <-reply:
		return users, nil
	case <-r.done:
		return nil, ErrRoomStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Room) handleInbound(in inboundEvent) {
	if !r.clients.Has(in.conn.ID()) {
		r.logger.Warn().
			Str("conn_id", in.conn.ID()).
			Str("event", string(in.event)).
			Msg("Ignoring event from unregistered connection.")
		return
	}

	switch in.event {
	case EventLogin:
		r.handleLogin(in.conn, in.data)

	case EventSendMessage:
		r.handleSendMessage(in.conn, in.data)

	default:
		r.logger.Warn().Str("conn_id", in.conn.ID()).Str("event", string(in.event)).Msg("Client sent unsupported event")
		r.sendError(in.conn, errs.NewError(errs.ErrUnsupportedEvent, in.event))
	}
}

// handleLogin checks the requested username against the registry and, when it is free,
// registers it, acknowledges the requester, and announces the join to everyone.
func (r *Room) handleLogin(conn Conn, data json.RawMessage) {
	if bound, ok := r.bindings[conn.ID()]; ok {
		r.logger.Warn().
			Str("conn_id", conn.ID()).
			Str("username", bound.Username).
			Msg("Login on an already authenticated connection rejected.")
		r.sendError(conn, errs.NewError(errs.ErrAlreadyLoggedIn))
		return
	}

	var login LoginPayload
	if customErr := req.DecodePayload(data, &login); customErr != nil {
		r.logger.Warn().Str("conn_id", conn.ID()).Msg("Client sent invalid login payload")
		r.sendError(conn, customErr)
		return
	}

	if customErr := login.Validate(r.config.MaxAvatarBytes); customErr != nil {
		r.sendError(conn, customErr)
		return
	}

	if r.registry.Exists(login.Username) {
		r.logger.Info().
			Str("conn_id", conn.ID()).
			Str("username", login.Username).
			Msg("Login rejected: username already present.")
		r.clients.EmitTo(conn, EventUserExist, errorPayloadFrom(errs.NewError(errs.ErrUserAlreadyExists)))
		return
	}

	u := user.User{Username: login.Username, Avatar: login.Avatar}
	r.registry.Add(u)
	r.bindings[conn.ID()] = u

	r.logger.Info().
		Str("conn_id", conn.ID()).
		Str("username", u.Username).
		Int("total_users", r.registry.Len()).
		Msg("User joined room.")

	r.clients.EmitTo(conn, EventLoginSuccess, u)
	r.clients.Emit(EventJoinRoom, u)
	r.clients.Emit(EventUserList, r.registry.Snapshot())
}

// handleDisconnect closes conn and, if it had logged in, removes its user and
// announces the departure. Connections that never logged in leave silently.
func (r *Room) handleDisconnect(conn Conn) {
	conn.Close()

	if !r.clients.Remove(conn.ID()) {
		r.logger.Debug().Str("conn_id", conn.ID()).Msg("Disconnect for unknown or already closed connection ignored.")
		return
	}

	u, ok := r.bindings[conn.ID()]
	if !ok {
		r.logger.Debug().Str("conn_id", conn.ID()).Msg("Unauthenticated connection closed.")
		return
	}

	delete(r.bindings, conn.ID())
	r.registry.Remove(u.Username)

	r.logger.Info().
		Str("conn_id", conn.ID()).
		Str("username", u.Username).
		Int("total_users", r.registry.Len()).
		Msg("User left room.")

	r.clients.Emit(EventLeaveRoom, LeavePayload{Username: u.Username})
	r.clients.Emit(EventUserList, r.registry.Snapshot())
}

// handleSendMessage relays data verbatim. The sender's claimed identity inside data is
// not checked against the registry.
func (r *Room) handleSendMessage(conn Conn, data json.RawMessage) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		r.sendError(conn, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if r.config.RelayToSender {
		r.clients.Emit(EventReceiveMessage, json.RawMessage(trimmed))
		return
	}
	r.clients.EmitExcept(conn.ID(), EventReceiveMessage, json.RawMessage(trimmed))
}

func (r *Room) sendError(conn Conn, err error) {
	r.clients.EmitTo(conn, EventError, errorPayloadFrom(err))
}
