package lsp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/stackvity/autoheader/pkg/autoheader"
)

// WebSocketPath is the endpoint clients connect to for a language server
// session.
const WebSocketPath = "/lsp"

// WebSocketHandler serves one language server session per WebSocket
// connection, plus a health endpoint.
type WebSocketHandler struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
	ctx      context.Context
	opts     autoheader.Options
	version  string
	active   atomic.Int64
}

// NewWebSocketHandler creates the HTTP handler behind `serve --listen`.
func NewWebSocketHandler(ctx context.Context, opts autoheader.Options, version string) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  slog.New(opts.Logger).With(slog.String("component", "lspWebSocket")),
		ctx:     ctx,
		opts:    opts,
		version: version,
	}
	r := mux.NewRouter()
	r.HandleFunc(WebSocketPath, h.serveSession).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ListenAndServe serves the handler on addr until ctx is cancelled.
func (h *WebSocketHandler) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		<-h.ctx.Done()
		_ = srv.Close()
	}()
	h.logger.Info("Listening for language server sessions", "addr", addr, "path", WebSocketPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *WebSocketHandler) serveSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err.Error())
		return
	}
	sessionID := uuid.NewString()
	logger := h.logger.With("session", sessionID, "remote", r.RemoteAddr)

	s, err := NewServer(h.ctx, h.opts, h.version)
	if err != nil {
		logger.Error("Cannot start session", "error", err.Error())
		_ = conn.Close()
		return
	}
	h.active.Add(1)
	defer h.active.Add(-1)

	logger.Info("Session started")
	// Blocks until the client disconnects.
	s.glspServer().ServeWebSocket(conn)
	logger.Info("Session ended")
}

func (h *WebSocketHandler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": h.active.Load(),
		"version":  h.version,
	})
}
