package engine

import (
	"log/slog"
)

// ============================================================================
// GRID OPTIONS — Functional options for New()
// ============================================================================

// Option configures grid behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger     *slog.Logger
	Aggregates map[string]AggregateFunc // custom aggregates, by name
	Listeners  []Listener
}

// WithLogger sets the logger the grid reports refreshes to.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithAggregate registers a custom aggregate under name. It shadows a
// built-in of the same name.
func WithAggregate(name string, fn AggregateFunc) Option {
	return func(c *config) {
		if c.Aggregates == nil {
			c.Aggregates = make(map[string]AggregateFunc)
		}
		c.Aggregates[name] = fn
	}
}

// WithListener subscribes l to grid events from construction on, so it also
// sees the initial refresh.
func WithListener(l Listener) Option {
	return func(c *config) {
		c.Listeners = append(c.Listeners, l)
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
