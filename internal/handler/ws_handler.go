/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

HandleWebSocket upgrades the connection, registers it with the Room, and runs the
client's read and write loops. Connection attempts are rate limited by the router.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"kchat/internal/app/chat"
	"kchat/internal/pkg/limiter"
	"kchat/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Identity is not checked here; clients log in over the socket with a login event.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		client := chat.NewClient(deps.Room, conn)

		if err := deps.Room.Register(client); err != nil {
			logx.Info("WebSocket connection rejected: room stopped.", "conn_id", client.ID())
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
				logx.Debug("Error writing close message", "conn_id", client.ID(), "error", err.Error())
			}
			if err := conn.Close(); err != nil {
				logx.Debug("WebSocket connection close error", "conn_id", client.ID(), "error", err.Error())
			}
			return
		}

		logx.Debug("WebSocket connection established", "conn_id", client.ID(), "remote_ip", logx.AnonymizeIP(limiter.ClientIP(r)))

		go client.WritePump()
		client.ReadPump()
	}
}
