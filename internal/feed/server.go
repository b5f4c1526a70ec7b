// Package feed serves a read-only view of the local device collection.
//
// It exposes the current snapshot over HTTP and streams every
// notification the synchroniser emits to WebSocket subscribers:
//
//	srv, err := feed.New(feed.Deps{...})
//	broadcaster.Add(srv)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Clients subscribe to the channels "device.success", "device.failure"
// and "device.remote". The feed never mutates the collection.
//
// Thread Safety: All methods are safe for concurrent use.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/infrastructure/config"
	"github.com/nerrad567/devsync/internal/infrastructure/logging"
	"github.com/nerrad567/devsync/internal/inventory"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds each dependency check made by /health.
const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
// *mqtt.Client and *influxdb.Client both provide one.
type HealthCheck func(ctx context.Context) error

// Source is the read side of the synchroniser.
type Source interface {
	Devices() []device.Device
	Device(id string) (device.Device, bool)
	Connected() bool
	Origin() string
}

// Deps holds the dependencies required by the feed server.
type Deps struct {
	Config  config.FeedConfig
	Logger  *logging.Logger
	Source  Source
	Version string

	// Checks are run on every /health request, keyed by dependency name.
	Checks map[string]HealthCheck
}

// Server is the HTTP and WebSocket feed.
type Server struct {
	cfg     config.FeedConfig
	logger  *logging.Logger
	source  Source
	version string
	checks  map[string]HealthCheck
	hub     *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a feed server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Source == nil {
		return nil, errors.New("feed: source is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		source:  deps.Source,
		version: deps.Version,
		checks:  deps.Checks,
		hub:     NewHub(deps.Config, deps.Logger, deps.Source.Devices),
	}, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Notify streams n, together with the current snapshot, to subscribers of
// the channel for its kind.
func (s *Server) Notify(n inventory.Notification) {
	s.hub.Broadcast(ChannelFor(n.Kind), EventPayload{
		Notification: n,
		Devices:      s.source.Devices(),
	})
}

// Start binds the listener and serves in the background.
// It returns an error if the address cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("feed: already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("feed: listening on %s: %w", addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("feed server starting", "address", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("feed server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the hub and gracefully shuts down the HTTP server.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.server, s.listener, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("feed server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down feed server: %w", err)
	}
	return nil
}
