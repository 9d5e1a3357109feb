/*
Package user defines the identity of a chat participant.

Identity is self-asserted: the username and avatar are whatever the client sends at login,
and they live only as long as the connection that registered them.
*/
package user

import (
	"strings"
	"unicode/utf8"

	"kchat/internal/pkg/errs"
)

// MaxUsernameLength is the maximum username length in characters.
const MaxUsernameLength = 32

// User represents a participant currently present in the room.
type User struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Validate checks the login-time constraints on u. The avatar is opaque (a URL or a
// data URL) and is only bounded by maxAvatarBytes; zero or less leaves it unbounded.
// The username is compared byte-for-byte elsewhere, so it is not normalized here.
func (u User) Validate(maxAvatarBytes int) *errs.CustomError {
	if strings.TrimSpace(u.Username) == "" || utf8.RuneCountInString(u.Username) > MaxUsernameLength {
		return errs.NewError(errs.ErrInvalidUsername, MaxUsernameLength)
	}

	if maxAvatarBytes > 0 && len(u.Avatar) > maxAvatarBytes {
		return errs.NewError(errs.ErrInvalidAvatar)
	}

	return nil
}
