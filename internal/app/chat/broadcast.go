/*
Package chat contains the core of the chat room: presence tracking, the login and
disconnect protocol, message relay, and fan-out to connected clients.

This file defines the Broadcaster, the fan-out primitive shared by presence updates
and message relay.
*/
package chat

import (
	"github.com/rs/zerolog"
)

// Conn is an open client connection as seen by the room.
type Conn interface {
	// ID returns the connection identifier, unique for the process lifetime.
	ID() string

	// Enqueue queues an encoded frame for delivery without blocking.
	// It returns false if the frame could not be queued.
	Enqueue(frame []byte) bool

	// Close shuts the connection down. It must be safe to call more than once.
	Close()
}

// Broadcaster delivers frames to the set of open connections.
// Like the Registry it is owned by the Room's Run goroutine.
type Broadcaster struct {
	conns map[string]Conn
	order []string

	// closed holds connections shut down for a failed delivery that the disconnect
	// path has not removed yet. They are skipped by later deliveries.
	closed map[string]struct{}

	logger zerolog.Logger
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		conns:  make(map[string]Conn),
		closed: make(map[string]struct{}),
		logger: logger,
	}
}

// Add starts delivering to conn. Re-adding an ID replaces the old Conn.
func (b *Broadcaster) Add(conn Conn) {
	if _, ok := b.conns[conn.ID()]; !ok {
		b.order = append(b.order, conn.ID())
	}
	b.conns[conn.ID()] = conn
	delete(b.closed, conn.ID())
}

// Remove stops delivering to the connection with id and reports whether it was present.
func (b *Broadcaster) Remove(id string) bool {
	if _, ok := b.conns[id]; !ok {
		return false
	}
	delete(b.conns, id)
	delete(b.closed, id)

	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether id is an open connection.
func (b *Broadcaster) Has(id string) bool {
	_, ok := b.conns[id]
	return ok
}

// CloseAll closes and forgets every connection.
func (b *Broadcaster) CloseAll() {
	for _, id := range b.order {
		b.conns[id].Close()
	}

	b.conns = make(map[string]Conn)
	b.closed = make(map[string]struct{})
	b.order = nil
}

// Len returns the number of open connections.
func (b *Broadcaster) Len() int {
	return len(b.conns)
}

// Emit delivers event to every open connection.
func (b *Broadcaster) Emit(event EventName, payload any) {
	b.EmitExcept("", event, payload)
}

// EmitExcept delivers event to every open connection except the one with skipID.
func (b *Broadcaster) EmitExcept(skipID string, event EventName, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(event)).Msg("Failed to encode broadcast frame")
		return
	}

	delivered := 0
	for _, id := range b.order {
		if id == skipID {
			continue
		}
		if b.deliver(b.conns[id], event, frame) {
			delivered++
		}
	}

	b.logger.Debug().
		Str("event", string(event)).
		Int("recipients", delivered).
		Msg("Broadcast delivered")
}

// EmitTo delivers event to conn only.
func (b *Broadcaster) EmitTo(conn Conn, event EventName, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(event)).Msg("Failed to encode frame")
		return
	}
	b.deliver(conn, event, frame)
}

// deliver queues frame on conn. A connection that cannot accept it is closed, which
// sends it through the disconnect path once its read loop notices.
func (b *Broadcaster) deliver(conn Conn, event EventName, frame []byte) bool {
	if _, ok := b.closed[conn.ID()]; ok {
		return false
	}

	if conn.Enqueue(frame) {
		return true
	}

	if _, ok := b.conns[conn.ID()]; ok {
		b.closed[conn.ID()] = struct{}{}
	}

	b.logger.Warn().
		Str("conn_id", conn.ID()).
		Str("event", string(event)).
		Msg("Client send queue full or closed. Closing connection.")
	conn.Close()
	return false
}
