package taskapi

import (
	"context"
	"log/slog"
)

// Option configures a Gateway.
type Option func(*Gateway) error

// Storer is the minimal store interface held by the Gateway. It covers
// lifecycle operations only. The subsystem packages (get, list, action,
// event) each define the store surface they need; a concrete backend
// implements all of them and this interface too.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Searcher is the minimal search-backend interface held by the Gateway.
// The search package defines the full Backend interface; the Gateway only
// needs lifecycle access.
type Searcher interface {
	Ping(ctx context.Context) error
	Close() error
}

// Gateway holds the configuration and backing collaborators for the
// dispatch engine. It is stateless between requests: all request state
// lives in the response tree built per call.
//
// Create one with New() and functional options, then build an
// engine.Engine on top of it.
type Gateway struct {
	config Config
	logger *slog.Logger
	store  Storer
	search Searcher
}

// New creates a new Gateway with the given options.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.store == nil {
		return nil, ErrNoStore
	}
	// A non-positive cap would stall every fan-out (errgroup treats a zero
	// limit as "no new goroutines"), so fall back to the default.
	if g.config.Concurrency < 1 {
		g.config.Concurrency = DefaultConfig().Concurrency
	}
	return g, nil
}

// Logger returns the gateway's logger.
func (g *Gateway) Logger() *slog.Logger { return g.logger }

// Store returns the gateway's store.
func (g *Gateway) Store() Storer { return g.store }

// Search returns the gateway's search backend, or nil if none is configured.
func (g *Gateway) Search() Searcher { return g.search }

// Config returns a copy of the gateway's configuration.
func (g *Gateway) Config() Config { return g.config }

// Close releases the store and search backend.
func (g *Gateway) Close() error {
	if g.search != nil {
		if err := g.search.Close(); err != nil {
			g.logger.Error("search backend close error", "error", err)
		}
	}
	if g.store != nil {
		return g.store.Close()
	}
	return nil
}

// WithStore sets the persistence backend for the gateway. The store must
// implement Storer at minimum; typically it also implements the get, list,
// action and event store interfaces.
func WithStore(s Storer) Option {
	return func(g *Gateway) error {
		g.store = s
		return nil
	}
}

// WithSearch sets the external full-text search backend.
func WithSearch(s Searcher) Option {
	return func(g *Gateway) error {
		g.search = s
		return nil
	}
}

// WithLogger sets the structured logger for the gateway.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = l
		return nil
	}
}

// WithOrigin sets the base URL echoed in query responses.
func WithOrigin(origin string) Option {
	return func(g *Gateway) error {
		g.config.Origin = origin
		return nil
	}
}

// WithConcurrency sets the maximum number of concurrently evaluated
// sub-units per request.
func WithConcurrency(n int) Option {
	return func(g *Gateway) error {
		g.config.Concurrency = n
		return nil
	}
}

// WithConfig replaces the whole configuration. Apply it before other
// options that touch individual fields.
func WithConfig(c Config) Option {
	return func(g *Gateway) error {
		g.config = c
		return nil
	}
}
