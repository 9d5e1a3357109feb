/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event: %s."},

	ErrUserAlreadyExists: {Code: ErrUserAlreadyExists, Message: "User already exists."},
	ErrAlreadyLoggedIn:   {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:   {Code: ErrInvalidUsername, Message: "Username must be 1 to %d characters."},
	ErrInvalidAvatar:     {Code: ErrInvalidAvatar, Message: "Avatar is too long."},

	ErrUnknown:         {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrRoomUnavailable: {Code: ErrRoomUnavailable, Message: "Chat room is unavailable.", Status: http.StatusServiceUnavailable},
}
