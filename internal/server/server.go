// Package server wires the access-log middleware into an HTTP server
// served over TCP or a Unix domain socket.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/wirelog/wirelog/internal/accesslog"
	"github.com/wirelog/wirelog/internal/config"
)

const (
	// Server timeout constants
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
)

// Server provides HTTP server functionality over Unix domain sockets or HTTP,
// with every route wrapped in the access-log middleware.
type Server struct {
	config     *config.Config
	socketPath string
	host       string
	port       int
	httpAddr   string
	useSocket  bool
	access     *AccessLogMiddleware
	// Channel-based coordination instead of mutex
	ready    chan struct{}                // Signals when server is ready
	done     chan struct{}                // Signals when server should stop
	listener atomic.Pointer[net.Listener] // Atomic access to listener
	server   atomic.Pointer[http.Server]  // Atomic access to server
	startMtx sync.Mutex
	started  chan struct{}
}

// NewWithSocket creates a new server instance listening on a Unix socket.
func NewWithSocket(cfg *config.Config, sink accesslog.Sink, socketPath string) *Server {
	return &Server{
		config:     cfg,
		socketPath: socketPath,
		useSocket:  true,
		access:     NewAccessLogMiddleware(cfg, sink, RequestIDAdapter()),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		started:    make(chan struct{}),
	}
}

// NewWithHTTPAddress creates a new server instance listening on a TCP
// address string.
func NewWithHTTPAddress(cfg *config.Config, sink accesslog.Sink, addr string) *Server {
	return &Server{
		config:    cfg,
		httpAddr:  addr,
		useSocket: false,
		access:    NewAccessLogMiddleware(cfg, sink, RequestIDAdapter()),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		started:   make(chan struct{}),
	}
}

// NewWithHTTP creates a new server instance listening on host:port.
func NewWithHTTP(cfg *config.Config, sink accesslog.Sink, host string, port int) *Server {
	return &Server{
		config:    cfg,
		host:      host,
		port:      port,
		useSocket: false,
		access:    NewAccessLogMiddleware(cfg, sink, RequestIDAdapter()),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		started:   make(chan struct{}),
	}
}

// Start starts the HTTP server listening on either Unix socket or HTTP port.
func (s *Server) Start() <-chan error {
	done := make(chan error, 1)
	err := func() (err error) {
		s.startMtx.Lock()
		defer s.startMtx.Unlock()

		if s.listener.Load() != nil {
			return errors.New("server is already running")
		}

		var listener net.Listener

		if s.useSocket {
			// Check if socket already exists and error if it does
			if _, err := os.Stat(s.socketPath); err == nil {
				return fmt.Errorf("socket file already exists: %s", s.socketPath)
			}
			listener, err = net.Listen("unix", s.socketPath)
			if err != nil {
				return fmt.Errorf("failed to listen on socket: %w", err)
			}
			slog.Info("Wirelog server listening", "socket", s.socketPath)
		} else {
			var addr string
			if s.httpAddr != "" {
				addr = s.httpAddr
			} else {
				addr = fmt.Sprintf("%s:%d", s.host, s.port)
			}
			listener, err = net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on address: %w", err)
			}
			slog.Info("Wirelog server listening", "address", addr)
		}

		// Store listener atomically
		s.listener.Store(&listener)
		close(s.started)
		close(s.ready)
		return nil
	}()
	if err != nil {
		done <- err
		return done
	}

	// Set up server: request-id first so the access-log adapter sees it.
	router := mux.NewRouter()
	s.setupRoutes(router)
	handler := RequestIDMiddleware(s.access.Wrap(router))

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Store server atomically
	s.server.Store(server)

	go func() {
		listenerPtr := s.listener.Load()
		if listenerPtr != nil {
			done <- server.Serve(*listenerPtr)
		}
	}()
	return done
}

// Stop gracefully shuts down the server and cleans up resources.
// It doesn't return an error because it operates idempotently.
func (s *Server) Stop(ctx context.Context) {
	select {
	case <-s.started:
	default:
		slog.Warn("Server not started, nothing to stop")
		return
	}

	// Shutdown server with timeout
	serverPtr := s.server.Load()
	if serverPtr != nil {
		if err := serverPtr.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
	}

	// Close listener
	listenerPtr := s.listener.Load()
	if listenerPtr != nil {
		if err := (*listenerPtr).Close(); err != nil {
			slog.Error("Error closing listener", "error", err)
		}
	}

	// Clean up socket file if using socket
	if s.useSocket {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			slog.Error("Error removing socket file", "path", s.socketPath, "error", err)
		}
	}
}

// Ready returns a channel that will be closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady waits for the server to be ready with a timeout.
func (s *Server) WaitReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for server to be ready")
	}
}

// Addr returns the actual network address the server is listening on.
// Returns nil if the server is not started or is using a Unix socket.
func (s *Server) Addr() net.Addr {
	if s.useSocket {
		return nil
	}

	listenerPtr := s.listener.Load()
	if listenerPtr == nil {
		return nil
	}

	return (*listenerPtr).Addr()
}

// SocketPath returns the Unix socket path if the server is using a socket.
// Returns empty string if the server is using HTTP.
func (s *Server) SocketPath() string {
	if s.useSocket {
		return s.socketPath
	}
	return ""
}

func (s *Server) setupRoutes(router *mux.Router) {
	// Health check at root level; typically paired with a debug rule
	// matching request.path against ^/health so probes don't flood logs.
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/health/live", s.handleHealth).Methods("GET")

	// Demo endpoints exercising the middleware paths.
	router.HandleFunc("/echo", s.handleEcho).Methods("POST")
	router.HandleFunc("/boom", s.handleBoom).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok","service":"wirelog"}`)); err != nil {
		slog.Error("Error writing health response", "error", err)
	}
}

// handleEcho writes the request body back and tags the event with an extra
// field, demonstrating per-request field injection.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	AddExtraFields(r.Context(), accesslog.Map{
		"handler": accesslog.String("echo"),
	})

	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("Error writing echo response", "error", err)
	}
}

// handleBoom panics, exercising the failure-path logging guarantee.
func (s *Server) handleBoom(_ http.ResponseWriter, _ *http.Request) {
	panic("boom endpoint triggered")
}
