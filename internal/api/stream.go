package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cabinmix/pkg/audio"
	"cabinmix/pkg/logging"
)

const (
	streamInterval = 250 * time.Millisecond
	writeWait      = 2 * time.Second
)

// StateSource provides mixer snapshots.
type StateSource interface {
	State() audio.State
}

// StreamHandler pushes mixer state to websocket clients.
type StreamHandler struct {
	source   StateSource
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(src StateSource) *StreamHandler {
	return &StreamHandler{
		source:   src,
		interval: streamInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// A nil CheckOrigin rejects browser origins whose host differs
			// from the request Host.
		},
	}
}

// HandleStream handles GET /api/mixer/stream
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// Clear the server read timeout inherited by the hijacked connection.
	_ = conn.SetReadDeadline(time.Time{})

	clientID := uuid.NewString()
	log := requestLog().With("client", clientID)
	log.Info("Stream client connected", "remote", r.RemoteAddr)
	defer log.Info("Stream client disconnected")

	// Reads only serve to notice the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.push(conn); err != nil {
			log.Debug("Stream write failed", "error", err)
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *StreamHandler) push(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(h.source.State())
}

func requestLog() *slog.Logger {
	if logging.RequestLogger != nil {
		return logging.RequestLogger
	}
	return slog.Default()
}
