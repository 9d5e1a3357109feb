package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"kchat/internal/pkg/errs"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name      string
		user      User
		maxAvatar int
		wantCode  int
	}{
		{"plain", User{Username: "alice"}, 64, 0},
		{"with avatar", User{Username: "bob", Avatar: "https://example.com/b.png"}, 64, 0},
		{"multibyte at limit", User{Username: strings.Repeat("猫", MaxUsernameLength)}, 64, 0},
		{"empty", User{}, 64, errs.ErrInvalidUsername},
		{"blank", User{Username: "   "}, 64, errs.ErrInvalidUsername},
		{"too long", User{Username: strings.Repeat("a", MaxUsernameLength+1)}, 64, errs.ErrInvalidUsername},
		{"avatar at limit", User{Username: "dave", Avatar: strings.Repeat("x", 64)}, 64, 0},
		{"avatar too long", User{Username: "carol", Avatar: strings.Repeat("x", 65)}, 64, errs.ErrInvalidAvatar},
		{"data url avatar unbounded", User{Username: "erin", Avatar: "data:image/png;base64," + strings.Repeat("A", 100000)}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate(tt.maxAvatar)
			if tt.wantCode == 0 {
				assert.Nil(t, err)
				return
			}
			if assert.NotNil(t, err) {
				assert.Equal(t, tt.wantCode, err.Code)
			}
		})
	}
}
