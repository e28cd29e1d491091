// Package web exposes the console over HTTP: queries, live streaming,
// the enabled switch, and the activation gate, in a handler that can
// be mounted into a host application's router or run standalone.
package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/capture"
	"github.com/serwidlick/backstage/logs"
)

// DefaultAddr binds to loopback only; the console is a local debug
// surface, not a public API
const DefaultAddr = "127.0.0.1:7777"

// Options configures the web surface
type Options struct {
	Addr  string // listen address for the standalone server
	Token string // optional Bearer token; empty disables auth
}

// NewHandler returns the console API as a mountable http.Handler
func NewHandler(console *backstage.Console, opts Options) http.Handler {
	h := &handlers{console: console}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(console))
	r.Use(corsMiddleware())
	if opts.Token != "" {
		r.Use(authMiddleware(opts.Token))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Always reachable: status, the enabled switch, and the gate.
		// The gate is how a disabled console gets turned on.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/status", h.getStatus)
			r.Get("/enabled", h.getEnabled)
			r.Post("/enabled", h.setEnabled)
			r.Post("/gate/tap", h.gateTap)
			r.Post("/gate/longpress", h.gateLongPress)
			r.Post("/gate/passcode", h.gatePasscode)
			r.Post("/gate/abandon", h.gateAbandon)
		})

		// Log surfaces answer 403 while the console is disabled
		r.Group(func(r chi.Router) {
			r.Use(requireEnabled(console))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))
				r.Get("/logs", h.getLogs)
				r.Post("/logs", h.postLog)
				r.Post("/clear", h.clearLogs)
				r.Post("/pause", h.pause)
				r.Post("/resume", h.resume)
			})

			// No timeout: the stream lives until the client leaves
			r.Get("/logs/stream", h.streamLogs)
		})
	})

	return r
}

// Server runs the handler standalone with SSE-friendly timeouts
type Server struct {
	opts       Options
	handler    http.Handler
	httpServer *http.Server
	mu         sync.Mutex
}

// NewServer creates a standalone console server
func NewServer(console *backstage.Console, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	return &Server{
		opts:    opts,
		handler: NewHandler(console, opts),
	}
}

// Start listens and serves until Shutdown or a listener error
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // disabled for SSE
		IdleTimeout:  60 * time.Second,
	}
	server := s.httpServer
	s.mu.Unlock()

	return server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.opts.Addr
}

// requireEnabled hides the log surfaces while the console is disabled
func requireEnabled(console *backstage.Console) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !console.Enabled() {
				writeJSON(w, http.StatusForbidden, ErrorResponse{
					Error: "console is disabled",
					Code:  CodeConsoleDisabled,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recoverer converts handler panics into console entries and a 500,
// so a broken debug surface reports itself in its own log view
func recoverer(console *backstage.Console) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				console.Store().Append(logs.New(logs.LevelError,
					fmt.Sprintf("panic serving %s: %v", requestPath(r), rec),
					logs.WithTag(capture.FrameworkTag),
					logs.WithStack(string(debug.Stack()))))
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error: "an internal error occurred",
					Code:  CodeInternal,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows cross-origin requests from localhost only
func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if isLocalhostOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var localhostOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
	"http://[::1]",
	"https://[::1]",
}

func isLocalhostOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, prefix := range localhostOrigins {
		if origin == prefix || strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}

// authMiddleware requires a Bearer token on every request
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: "missing or malformed authorization header",
					Code:  CodeUnauthorized,
				})
				return
			}

			provided := strings.TrimPrefix(header, prefix)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: "invalid token",
					Code:  CodeUnauthorized,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
