package live

import (
	"context"
	"testing"
)

func TestAPISecretAuthenticator(t *testing.T) {
	t.Parallel()

	auth := NewAPISecretAuthenticator(
		APISecretEntry{
			Token: "sec_test_123",
			Identity: Identity{
				Subject: "sysbot",
				SiteID:  "site-1",
				Scopes:  []string{ScopeTaskWrite, ScopeSubscribe},
			},
		},
		APISecretEntry{
			Token: "sec_admin_456",
			Identity: Identity{
				Subject: "admin-1",
				Scopes:  []string{ScopeAll},
			},
		},
	)

	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		id, err := auth.Authenticate(ctx, "sec_test_123")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if id.Subject != "sysbot" {
			t.Errorf("Subject = %q, want %q", id.Subject, "sysbot")
		}
		if id.SiteID != "site-1" {
			t.Errorf("SiteID = %q, want %q", id.SiteID, "site-1")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "invalid")
		if err == nil {
			t.Error("expected error for invalid token")
		}
	})
}

func TestIdentityHasScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		scopes   []string
		check    string
		expected bool
	}{
		{"exact match", []string{"task:write"}, "task:write", true},
		{"no match", []string{"task:write"}, "task:read", false},
		{"wildcard", []string{"*"}, "anything", true},
		{"multiple scopes", []string{"task:read", "task:write"}, "task:write", true},
		{"empty scopes", nil, "task:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{Subject: "test", Scopes: tt.scopes}
			if got := id.HasScope(tt.check); got != tt.expected {
				t.Errorf("HasScope(%q) = %v, want %v", tt.check, got, tt.expected)
			}
		})
	}
}

func TestRequiredScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method   string
		expected string
	}{
		{MethodAuth, ""},
		{MethodTaskGet, ScopeTaskRead},
		{MethodTaskList, ScopeTaskRead},
		{MethodTaskSearch, ScopeTaskRead},
		{MethodTaskDo, ScopeTaskWrite},
		{MethodTaskRun, ScopeTaskWrite},
		{MethodSubscribe, ScopeSubscribe},
		{MethodUnsubscribe, ScopeSubscribe},
		{MethodStats, ScopeStatsRead},
		{"something.else", ScopeAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := RequiredScope(tt.method)
			if got != tt.expected {
				t.Errorf("RequiredScope(%q) = %q, want %q", tt.method, got, tt.expected)
			}
		})
	}
}

func TestNoopAuthenticator(t *testing.T) {
	t.Parallel()

	auth := &NoopAuthenticator{}
	id, err := auth.Authenticate(context.Background(), "any-token")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Subject != "anonymous" {
		t.Errorf("Subject = %q, want %q", id.Subject, "anonymous")
	}
	if !id.HasScope(ScopeAll) {
		t.Error("NoopAuthenticator should grant wildcard scope")
	}
}

func TestCompositeAuthenticator(t *testing.T) {
	t.Parallel()

	first := NewAPISecretAuthenticator(
		APISecretEntry{
			Token:    "sec_first",
			Identity: Identity{Subject: "first"},
		},
	)

	second := NewAPISecretAuthenticator(
		APISecretEntry{
			Token:    "sec_second",
			Identity: Identity{Subject: "second"},
		},
	)

	composite := NewCompositeAuthenticator(first, second)
	ctx := context.Background()

	t.Run("first authenticator matches", func(t *testing.T) {
		id, err := composite.Authenticate(ctx, "sec_first")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if id.Subject != "first" {
			t.Errorf("Subject = %q, want %q", id.Subject, "first")
		}
	})

	t.Run("second authenticator matches", func(t *testing.T) {
		id, err := composite.Authenticate(ctx, "sec_second")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if id.Subject != "second" {
			t.Errorf("Subject = %q, want %q", id.Subject, "second")
		}
	})

	t.Run("none match", func(t *testing.T) {
		_, err := composite.Authenticate(ctx, "unknown")
		if err == nil {
			t.Error("expected error when no authenticator matches")
		}
	})
}
