package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
)

// RecentFunc returns the alarms greeted to a new client.
type RecentFunc func(ctx context.Context) ([]alarm.Alarm, error)

// Handler upgrades requests to websocket connections attached to the hub.
// Any origin is accepted, like the rest of the HTTP transport.
func (h *Hub) Handler(recent RecentFunc) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithName(r.Context(), "websocket")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error.
			logger.DebugKV(ctx, "Websocket upgrade failed", "error", err)

			return
		}

		client := newClient(h, conn)

		if recent != nil {
			alarms, recentErr := recent(ctx)
			if recentErr != nil {
				logger.WarnKV(ctx, "Failed to load recent alarms for greeting", "error", recentErr)
			}

			if alarms == nil {
				alarms = []alarm.Alarm{}
			}

			client.send <- Message{Type: MessageTypeRecentAlarms, Data: alarms}
		}

		if !h.attach(client) {
			_ = conn.Close()

			return
		}

		// The request context ends with the handler, the pumps outlive it.
		pumpCtx := context.WithoutCancel(ctx)

		go client.writePump(pumpCtx)
		go client.readPump(pumpCtx)
	}
}
