// Package hub holds the long-lived viewer connections and bridges them to
// the fan-out bus. There is no acknowledgment or backpressure protocol: a
// viewer that cannot keep up misses events and reconciles with an
// incremental snapshot keyed by its last-seen timestamp.
package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/placeboard/placeboard/internal/bus"
	"github.com/placeboard/placeboard/internal/metrics"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Hub upgrades viewer requests to websockets and streams bus events to them.
type Hub struct {
	broker   *bus.Broker
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(broker *bus.Broker, logger *slog.Logger) *Hub {
	return &Hub{
		broker: broker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin policy is enforced upstream; the stream carries
			// only public canvas state.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams events until the viewer
// disconnects or the server shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.broker.Subscribe()
	defer unsubscribe()

	metrics.LiveViewers.Inc()
	defer metrics.LiveViewers.Dec()
	h.logger.Info("viewer connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Viewers send nothing meaningful; the read loop only notices closes
	// and keeps control frames flowing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("viewer disconnected", "remote", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Info("viewer write failed, dropping connection",
					"remote", r.RemoteAddr, "error", err)
				return
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
