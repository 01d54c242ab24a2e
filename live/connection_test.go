package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestConnection(t *testing.T) {
	t.Parallel()

	identity := &Identity{
		Subject: "sysbot",
		SiteID:  "site-1",
		Scopes:  []string{ScopeTaskWrite},
	}
	codec := &JSONCodec{}

	conn := NewConnection("conn-1", identity, codec)

	if conn.ID != "conn-1" {
		t.Errorf("ID = %q, want %q", conn.ID, "conn-1")
	}
	if conn.Identity.Subject != "sysbot" {
		t.Errorf("Identity.Subject = %q, want %q", conn.Identity.Subject, "sysbot")
	}
	if conn.Codec.Name() != "json" {
		t.Errorf("Codec.Name = %q, want %q", conn.Codec.Name(), "json")
	}
	if conn.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should not be zero")
	}
}

func TestConnectionSubscriptions(t *testing.T) {
	t.Parallel()

	conn := NewConnection("conn-2", nil, &JSONCodec{})

	conn.AddSubscription("firehose")
	conn.AddSubscription("subject:pageid:110")

	subs := conn.Subscriptions()
	if len(subs) != 2 {
		t.Fatalf("len(Subscriptions) = %d, want 2", len(subs))
	}

	conn.RemoveSubscription("firehose")
	subs = conn.Subscriptions()
	if len(subs) != 1 {
		t.Fatalf("len(Subscriptions) = %d, want 1", len(subs))
	}
}

func TestConnectionTouch(t *testing.T) {
	t.Parallel()

	conn := NewConnection("conn-3", nil, &JSONCodec{})
	before := conn.LastActivity.Load().(time.Time)

	time.Sleep(time.Millisecond)
	conn.Touch()

	after := conn.LastActivity.Load().(time.Time)
	if !after.After(before) {
		t.Error("Touch should update LastActivity")
	}
}

func TestConnectionManager(t *testing.T) {
	t.Parallel()

	cm := NewConnectionManager()

	c1 := NewConnection("c1", nil, &JSONCodec{})
	c2 := NewConnection("c2", nil, &JSONCodec{})

	cm.Add(c1)
	cm.Add(c2)

	if cm.Count() != 2 {
		t.Errorf("Count = %d, want 2", cm.Count())
	}

	got, ok := cm.Get("c1")
	if !ok || got.ID != "c1" {
		t.Error("Get(c1) should return the connection")
	}

	_, ok = cm.Get("nonexistent")
	if ok {
		t.Error("Get(nonexistent) should return false")
	}

	cm.Remove("c1")
	if cm.Count() != 1 {
		t.Errorf("Count after Remove = %d, want 1", cm.Count())
	}

	all := cm.All()
	if len(all) != 1 {
		t.Errorf("len(All) = %d, want 1", len(all))
	}
}

func TestConnectionFrameAccounting(t *testing.T) {
	t.Parallel()

	conn := NewConnection("conn-4", nil, &JSONCodec{})
	if conn.Frames() != 0 {
		t.Fatalf("Frames = %d, want 0", conn.Frames())
	}

	conn.Touch()
	conn.Touch()
	conn.Touch()
	if conn.Frames() != 3 {
		t.Errorf("Frames = %d, want 3", conn.Frames())
	}
}

func TestConnectionManagerCountBySite(t *testing.T) {
	t.Parallel()

	cm := NewConnectionManager()
	cm.Add(NewConnection("c1", &Identity{Subject: "sysbot", SiteID: "site-1"}, &JSONCodec{}))
	cm.Add(NewConnection("c2", &Identity{Subject: "reader", SiteID: "site-1"}, &JSONCodec{}))
	cm.Add(NewConnection("c3", &Identity{Subject: "admin-1", SiteID: "site-2"}, &JSONCodec{}))
	cm.Add(NewConnection("c4", nil, &JSONCodec{}))

	bySite := cm.CountBySite()
	if bySite["site-1"] != 2 || bySite["site-2"] != 1 || bySite[""] != 1 {
		t.Errorf("CountBySite = %v", bySite)
	}
}

func TestHandlerStats_ReportsConnections(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	cm := NewConnectionManager()
	cm.Add(NewConnection("c1", &Identity{Subject: "sysbot", SiteID: "site-1"}, &JSONCodec{}))
	h.conns = cm

	resp := h.Handle(context.Background(), &Frame{
		ID:     "req-stats",
		Type:   FrameRequest,
		Method: MethodStats,
	}, wildcardConn())
	if resp == nil || resp.Type != FrameResponse {
		t.Fatalf("resp = %+v", resp)
	}

	var stats map[string]any
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n, ok := stats["connections"].(float64); !ok || n != 1 {
		t.Errorf("connections = %v, want 1", stats["connections"])
	}
	if _, ok := stats["connections_by_site"]; !ok {
		t.Error("expected connections_by_site")
	}
}
