// Package store defines the aggregate persistence interface. Each subsystem
// (get, list, action, event) defines its own store interface; the composite
// Store composes them all. Backends: Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/quillboard/taskapi/action"
	"github.com/quillboard/taskapi/event"
	"github.com/quillboard/taskapi/get"
	"github.com/quillboard/taskapi/list"
)

// Store is the aggregate persistence interface. Each subsystem store is a
// composable interface; a single backend (postgres, sqlite, memory)
// implements all of them.
type Store interface {
	get.Store
	list.Store
	action.Store
	event.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
