package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/cbodonnell/cloudflight/pkg/api/handlers"
	"github.com/cbodonnell/cloudflight/pkg/api/middleware"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/repositories"
	"github.com/cbodonnell/cloudflight/pkg/state"
	"github.com/gorilla/mux"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port int
	TLS  *TLSConfig
	// WebSocketHandler serves player connections on / and /ws.
	WebSocketHandler http.Handler
	StateManager     state.StateManager
	// Repository enables the read-only flight recorder routes. Optional.
	Repository repositories.Repository
}

// NewRouter builds the HTTP routes of the relay.
func NewRouter(opts NewAPIServerOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)

	r.HandleFunc("/healthz", handlers.HandleHealthz()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.CORS)
	api.HandleFunc("/players", handlers.HandleListPlayers(opts.StateManager)).Methods(http.MethodGet, http.MethodOptions)
	if opts.Repository != nil {
		api.HandleFunc("/recorder/events", handlers.HandleListSessionEvents(opts.Repository)).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/recorder/snapshots/latest", handlers.HandleLatestSnapshot(opts.Repository)).Methods(http.MethodGet, http.MethodOptions)
	}

	if opts.WebSocketHandler != nil {
		r.Handle("/ws", opts.WebSocketHandler).Methods(http.MethodGet)
		r.Handle("/", opts.WebSocketHandler).Methods(http.MethodGet)
	}
	return r
}

// NewAPIServer creates a new http.Server for the relay
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Start starts the APIServer and blocks until it is stopped
func (s *APIServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("Server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("Server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("Server closed")
			return nil
		}
		return fmt.Errorf("server error: %v", err)
	}
	return nil
}

// Serve serves on an existing listener, used by tests
func (s *APIServer) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %v", err)
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
