package taskapi

import "time"

// Config holds configuration for the Gateway.
type Config struct {
	// Origin is the base URL clients must prepend to relative paths found
	// in returned items. Echoed in Get/List/Search responses.
	Origin string

	// Concurrency is the maximum number of sub-units (refs within a Get,
	// sub-tasks within a multi-task request) evaluated concurrently.
	Concurrency int

	// RequestTimeout bounds one top-level request end to end. Items still
	// pending when it fires are reported as per-item timeouts.
	RequestTimeout time.Duration

	// DefaultListLimit applies when a list or search task omits its limit.
	DefaultListLimit int

	// MaxListLimit caps any caller-supplied limit.
	MaxListLimit int

	// MaxNestingDepth bounds recursive batches (nested doActions and
	// nested runQueries alike).
	MaxNestingDepth int

	// MaxActionsPerBatch caps the number of actions in one doActions
	// request, counted recursively through nested batches.
	MaxActionsPerBatch int

	// ActionRatePerSec and ActionBurst bound how fast one acting identity
	// may run mutating actions. Zero disables rate limiting.
	ActionRatePerSec float64
	ActionBurst      int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:        8,
		RequestTimeout:     20 * time.Second,
		DefaultListLimit:   25,
		MaxListLimit:       200,
		MaxNestingDepth:    5,
		MaxActionsPerBatch: 100,
		ActionRatePerSec:   0,
		ActionBurst:        0,
	}
}
