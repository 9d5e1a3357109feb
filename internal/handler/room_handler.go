/*
Package handler provides HTTP handler functions for the chat room.
*/
package handler

import (
	"errors"
	"net/http"

	"kchat/internal/app/chat"
	"kchat/internal/pkg/errs"
	"kchat/internal/pkg/logx"
	"kchat/internal/pkg/resp"
)

// HandleListUsers returns the users currently present in the room.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := deps.Room.Users(r.Context())
		if err != nil {
			if errors.Is(err, chat.ErrRoomStopped) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRoomUnavailable))
				return
			}
			logx.Warn("Presence query aborted", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": users,
			"count": len(users),
		})
	}
}
