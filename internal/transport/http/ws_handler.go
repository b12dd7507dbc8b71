package http

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"testyourself-core/internal/app"
)

type WSHandler struct {
	leaderboard *app.LeaderboardService
	upgrader    websocket.Upgrader
	logger      *log.Logger
}

func NewWSHandler(leaderboard *app.LeaderboardService, logger *log.Logger) *WSHandler {
	return &WSHandler{
		leaderboard: leaderboard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "ws"),
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams standings for the bucket query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		http.Error(w, "missing bucket", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.leaderboard.Subscribe(r.Context(), bucket)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Client messages are ignored; reading surfaces the close frame.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case standings, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "standings", Payload: standings}); err != nil {
				h.logger.Debug("ws write error", "err", err)
				return
			}
		case <-closed:
			return
		}
	}
}
