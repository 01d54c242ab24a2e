// Package scope provides helpers to capture and restore the site identity
// a request executes under. The forum serves many sites from one process;
// every task runs scoped to exactly one site.
//
// When the forge framework is available, scope is carried via
// forge.WithScope / forge.ScopeFrom. These helpers bridge between the
// HTTP layer (which knows the site) and the executors (which only see a
// context).
package scope

import (
	"context"

	"github.com/xraph/forge"
)

// Capture extracts the site identifier from the context.
// Returns the empty string if no scope is present.
func Capture(ctx context.Context) (siteID string) {
	s, ok := forge.ScopeFrom(ctx)
	if !ok {
		return ""
	}
	return s.AppID()
}

// Restore attaches a site scope to the context. If siteID is empty, the
// context is returned unchanged (no-op).
func Restore(ctx context.Context, siteID string) context.Context {
	if siteID == "" {
		return ctx
	}
	return forge.WithScope(ctx, forge.NewAppScope(siteID))
}
