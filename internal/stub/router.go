// Package stub is a local vault that verifies signed requests the way the
// real service does and serves file and folder operations from memory.
package stub

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/types"
)

// Options configures a stub server
type Options struct {
	Accounts []Account
	MaxSkew  time.Duration
	Logger   *slog.Logger
	Now      func() time.Time // clock for timestamp checks, time.Now when nil
	LogHTTP  bool             // chi request logging
}

// Router represents the stub HTTP router
type Router struct {
	handler *Handler
	store   *Store
	logHTTP bool
}

// NewRouter creates a stub router with a fresh store keyed by the first account's secret
func NewRouter(opts Options) (*Router, error) {
	if len(opts.Accounts) == 0 {
		return nil, errors.New("at least one account is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	accounts := make(map[string]Account, len(opts.Accounts))
	for _, a := range opts.Accounts {
		accounts[a.Credentials.ID()] = a
	}

	store := NewStore(opts.Accounts[0].Credentials.Secret())
	a := &authenticator{accounts: accounts, maxSkew: opts.MaxSkew, now: opts.Now}
	return &Router{
		handler: newHandler(store, a, opts.Logger),
		store:   store,
		logHTTP: opts.LogHTTP,
	}, nil
}

// Store returns the backing store
func (r *Router) Store() *Store {
	return r.store
}

// SetupRoutes configures the vault routes
func (r *Router) SetupRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Standard middleware
	if r.logHTTP {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		r.handler.sendJSON(w, types.NewResponse(types.CodeOK, "OK").Set("status", "healthy"))
	})

	router.Post("/api2/{group}/{action}", r.handler.ServeOperation)

	return router
}

// AccountFromConfig builds the stub account described by a configuration
func AccountFromConfig(cfg *types.Config, creds auth.Credentials) Account {
	return Account{
		Credentials: creds,
		Username:    cfg.Stub.AccountUsername,
		Password:    cfg.Stub.AccountPassword,
	}
}

// Server represents the stub HTTP server
type Server struct {
	router *chi.Mux
	stub   *Router
	config *types.StubConfig
}

// NewServer creates a stub server for the given config section
func NewServer(stub *Router, config *types.StubConfig) *Server {
	return &Server{
		router: stub.SetupRoutes(),
		stub:   stub,
		config: config,
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}
