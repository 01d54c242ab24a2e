package live

import (
	"context"
	"fmt"
	"strings"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the authenticated user/service ID.
	Subject string `json:"subject"`

	// SiteID scopes the caller to one forum site.
	SiteID string `json:"site_id,omitempty"`

	// Scopes defines what operations are permitted.
	// Examples: "task:read", "task:write", "subscribe", "*"
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope returns true if the identity has the given scope.
// A wildcard "*" scope grants all permissions.
func (id *Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

// Authenticator validates credentials and returns an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// ErrUnauthorized indicates authentication failure.
var ErrUnauthorized = fmt.Errorf("live: unauthorized")

// ── API secret authenticator ────────────────────────

// APISecretEntry maps a token to an identity.
type APISecretEntry struct {
	Token    string
	Identity Identity
}

// APISecretAuthenticator validates API secrets against a static list.
type APISecretAuthenticator struct {
	keys map[string]*Identity
}

// NewAPISecretAuthenticator creates an API secret authenticator.
func NewAPISecretAuthenticator(entries ...APISecretEntry) *APISecretAuthenticator {
	keys := make(map[string]*Identity, len(entries))
	for _, e := range entries {
		id := e.Identity
		keys[e.Token] = &id
	}
	return &APISecretAuthenticator{keys: keys}
}

func (a *APISecretAuthenticator) Authenticate(_ context.Context, token string) (*Identity, error) {
	id, ok := a.keys[token]
	if !ok {
		return nil, ErrUnauthorized
	}
	return id, nil
}

// ── No-op authenticator ─────────────────────────────

// NoopAuthenticator accepts all tokens with a wildcard identity.
// Use for development only.
type NoopAuthenticator struct{}

func (a *NoopAuthenticator) Authenticate(_ context.Context, _ string) (*Identity, error) {
	return &Identity{
		Subject: "anonymous",
		Scopes:  []string{"*"},
	}, nil
}

// ── Composite authenticator ─────────────────────────

// CompositeAuthenticator tries multiple authenticators in order.
// The first successful authentication wins.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator chains multiple authenticators.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{authenticators: auths}
}

func (c *CompositeAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	for _, auth := range c.authenticators {
		id, err := auth.Authenticate(ctx, token)
		if err == nil {
			return id, nil
		}
	}
	return nil, ErrUnauthorized
}

// ── Scope constants ─────────────────────────────────

const (
	ScopeTaskRead  = "task:read"
	ScopeTaskWrite = "task:write"
	ScopeSubscribe = "subscribe"
	ScopeStatsRead = "stats:read"
	ScopeAdmin     = "admin"
	ScopeAll       = "*"
)

// RequiredScope returns the minimum scope required for a method.
func RequiredScope(method string) string {
	switch {
	case method == MethodAuth:
		return "" // No scope needed for auth.
	case strings.HasPrefix(method, "task."):
		if method == MethodTaskGet || method == MethodTaskList || method == MethodTaskSearch {
			return ScopeTaskRead
		}
		// task.do always writes; task.run may carry actions.
		return ScopeTaskWrite
	case method == MethodSubscribe, method == MethodUnsubscribe:
		return ScopeSubscribe
	case method == MethodStats:
		return ScopeStatsRead
	default:
		return ScopeAdmin
	}
}
