// Package monitor serves live audio level readings over WebSocket.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stblab/audioprobe/internal/capture"
	"github.com/stblab/audioprobe/internal/types"
)

// pollTimeout bounds the wait for a single level message. Matches the
// stall bound used by the detectors.
const pollTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// checkOrigin reports whether the WebSocket connection origin is allowed.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// Same-origin requests omit the Origin header
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected WebSocket connection: invalid origin URL", "origin", origin)
		return false
	}

	host := u.Hostname()

	// Exact localhost matches
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	// Same-origin check (compare with request host)
	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}

	// Check private IP ranges using net.IP
	ip := net.ParseIP(host)
	if ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}

	slog.Warn("rejected WebSocket connection", "origin", origin, "host", host)
	return false
}

// Server streams live level readings to WebSocket clients. Each client
// connection opens its own capture pipeline for the lifetime of the
// connection.
type Server struct {
	open       func() (capture.Pipeline, error)
	httpServer *http.Server
}

// NewServer returns a Server that opens capture pipelines with open and
// listens on the given port.
func NewServer(port int, open func() (capture.Pipeline, error)) *Server {
	s := &Server{open: open}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/levels", s.handleLevels)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	slog.Info("monitor server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleLevels upgrades the connection and streams level updates until
// the client disconnects or the pipeline fails.
func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // Connection teardown, close error not actionable

	pipeline, err := s.open()
	if err != nil {
		slog.Error("failed to open capture pipeline", "error", err)
		_ = conn.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
		return
	}
	defer func() {
		if err := pipeline.Stop(); err != nil {
			slog.Warn("pipeline stop failed", "error", err)
		}
	}()

	slog.Info("level monitor client connected", "remote", r.RemoteAddr)

	// Reader goroutine detects client disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("level monitor client disconnected", "remote", r.RemoteAddr)
			return
		default:
		}

		msg, err := pipeline.NextLevelMessage(pollTimeout)
		if err != nil {
			if errors.Is(err, capture.ErrNoMessage) {
				slog.Error("capture pipeline stalled", "remote", r.RemoteAddr)
			} else {
				slog.Error("capture pipeline failed", "remote", r.RemoteAddr, "error", err)
			}
			_ = conn.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
			return
		}

		update := types.WSLevelsUpdate{
			Type:        "levels",
			TimestampMs: msg.Timestamp.Milliseconds(),
			RMS:         msg.RMS,
			Peak:        msg.Peak,
		}
		if err := conn.WriteJSON(update); err != nil {
			slog.Info("level monitor client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}
