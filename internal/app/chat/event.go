/*
Package chat contains the core of the chat room: presence tracking, the login and
disconnect protocol, message relay, and fan-out to connected clients.

This file defines the wire format. Every WebSocket text frame is one JSON Envelope
naming an event and carrying its data.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"kchat/internal/app/user"
	"kchat/internal/pkg/errs"
)

// EventName identifies the kind of an Envelope.
type EventName string

// Client to server events.
const (
	EventLogin       EventName = "login"
	EventSendMessage EventName = "sendMessage"
)

// Server to client events.
const (
	EventUserExist      EventName = "userExist"
	EventLoginSuccess   EventName = "loginSuccess"
	EventJoinRoom       EventName = "joinRoom"
	EventUserList       EventName = "userList"
	EventLeaveRoom      EventName = "leaveRoom"
	EventReceiveMessage EventName = "receiveMessage"
	EventError          EventName = "error"
)

// Envelope is a single framed event.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the data of error and userExist events.
type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// LeavePayload is the data of a leaveRoom event.
type LeavePayload struct {
	Username string `json:"username"`
}

// LoginPayload is the data of a login event.
type LoginPayload = user.User

var errEmptyEventName = errors.New("envelope has no event name")

// ParseEnvelope decodes one inbound frame.
func ParseEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, errEmptyEventName
	}
	return env, nil
}

// EncodeFrame marshals payload and wraps it in an Envelope for event.
// A json.RawMessage payload is embedded verbatim.
func EncodeFrame(event EventName, payload any) ([]byte, error) {
	var data json.RawMessage

	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = b
	}

	return json.Marshal(Envelope{Event: event, Data: data})
}

// errorPayloadFrom converts err into the payload reported to a single client.
func errorPayloadFrom(err error) ErrorPayload {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return ErrorPayload{Code: customErr.Code, Msg: customErr.Message}
	}

	unknown := errs.NewError(errs.ErrUnknown, err)
	return ErrorPayload{Code: unknown.Code, Msg: unknown.Message}
}
