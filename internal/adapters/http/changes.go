package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nexusplan/core/internal/application/notify"
	"github.com/nexusplan/core/internal/infrastructure/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// ChangesHandler streams data-changed broadcasts to websocket clients so
// UIs can re-render on every local write and every applied cloud update.
type ChangesHandler struct {
	notifier *notify.Notifier
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewChangesHandler creates a new change feed handler
func NewChangesHandler(notifier *notify.Notifier, logger *logger.Logger) *ChangesHandler {
	return &ChangesHandler{
		notifier: notifier,
		logger:   logger.WithComponent("http.changes"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// changeEvent is one frame on the feed. Broadcasts carry no payload; the
// client re-reads whatever collections it displays.
type changeEvent struct {
	Type string `json:"type"`
	At   string `json:"at"`
}

// Stream upgrades the connection and forwards every broadcast as one frame.
// Broadcasts arriving while a frame is in flight coalesce into a single
// pending notification.
func (h *ChangesHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	changed := make(chan struct{}, 1)
	sub := h.notifier.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-changed:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			event := changeEvent{Type: "data-changed", At: time.Now().UTC().Format(time.RFC3339)}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debugw("Change feed write failed", "error", err)
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}
