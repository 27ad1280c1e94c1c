package consulkv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hashicorp/consul/api"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	parsed, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	cfg := api.DefaultConfig()
	cfg.Scheme = parsed.Scheme
	cfg.Address = parsed.Host
	cfg.HttpClient = srv.Client()

	cli, err := api.NewClient(cfg)
	if err != nil {
		t.Fatalf("new consul client: %v", err)
	}

	client, err := New(cli)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetDirectoryListsAllPairs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/kv/pubsub" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Consul-Index", "42")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Key":"pubsub/a/b/c/uuid-1","Value":"eyJ1dWlkIjoidXVpZC0xIn0=","ModifyIndex":1},
			{"Key":"pubsub/a/b/d/uuid-2","Value":"eyJ1dWlkIjoidXVpZC0yIn0=","ModifyIndex":2}
		]`))
	})

	seen := map[string]string{}
	index, err := client.GetDirectory(context.Background(), "pubsub", func(key, value string) {
		seen[key] = value
	})
	if err != nil {
		t.Fatalf("GetDirectory: %v", err)
	}
	if index != 42 {
		t.Fatalf("expected index 42, got %d", index)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(seen))
	}
}

func TestWatchStreamReportsTimeoutWhenIndexUnchanged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Consul-Index", "5")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	stream, err := client.Watch(context.Background(), "pubsub", 5)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	event, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event != nil {
		t.Fatalf("expected timeout (nil, nil), got event %#v", event)
	}
}

func TestWatchStreamDiffsAgainstPreviousSnapshot(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Header().Set("X-Consul-Index", "1")
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.Header().Set("X-Consul-Index", "2")
		_, _ = w.Write([]byte(`[{"Key":"pubsub/a/b/c/uuid-1","Value":"eyJ1dWlkIjoidXVpZC0xIn0=","ModifyIndex":2}]`))
	})

	stream, err := client.Watch(context.Background(), "pubsub", 0)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	event, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event == nil {
		t.Fatal("expected a create event on the second poll")
	}
}
