/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server
and in the events and HTTP responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request body or event frame is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnsupportedEvent indicates that the client sent an event name the server does not handle.
	ErrUnsupportedEvent = 1008
)

// 2xxx: Presence Errors
const (
	// ErrUserAlreadyExists indicates that the requested username is held by another connection.
	ErrUserAlreadyExists = 2001

	// ErrAlreadyLoggedIn indicates that the connection has already completed login.
	ErrAlreadyLoggedIn = 2002

	// ErrInvalidUsername indicates that the username is blank or too long.
	ErrInvalidUsername = 2003

	// ErrInvalidAvatar indicates that the avatar value is too long.
	ErrInvalidAvatar = 2004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrRoomUnavailable indicates that the chat room is shutting down.
	ErrRoomUnavailable = 5001
)
