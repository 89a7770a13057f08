package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const defaultPushInterval = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleLiveStream upgrades the connection and pushes live chart updates at
// the refresh interval from settings until the client disconnects
func (h *Handler) HandleLiveStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(h.pushInterval(ctx))
	defer ticker.Stop()

	for {
		update, err := h.assembler.Live(ctx)
		if err != nil {
			h.log.Warnf("Live update assembly failed: %v", err)
		} else if err := conn.WriteJSON(update); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) pushInterval(ctx context.Context) time.Duration {
	s, err := h.settings.Get(ctx)
	if err != nil || s.FrontendRefreshIntervalS <= 0 {
		return defaultPushInterval
	}
	return time.Duration(s.FrontendRefreshIntervalS) * time.Second
}
