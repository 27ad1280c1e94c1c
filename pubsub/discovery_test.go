package pubsub

import (
	"testing"

	"github.com/fireflycore/pubsub-discovery/constant"
)

type recordingListener struct {
	added   []Endpoint
	removed []Endpoint
}

func (l *recordingListener) EndpointAdded(ep Endpoint)   { l.added = append(l.added, ep) }
func (l *recordingListener) EndpointRemoved(ep Endpoint) { l.removed = append(l.removed, ep) }

func TestDiscoveryRegistryIngestNotifiesListener(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	ep := validEndpoint()
	r.ingest("key-1", ep)

	if len(l.added) != 1 {
		t.Fatalf("expected 1 added notification, got %d", len(l.added))
	}
}

func TestDiscoveryRegistrySelfSuppression(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	ep := validEndpoint()
	ep[constant.PropFrameworkUUID] = "local-fw"
	r.ingest("key-1", ep)

	if len(l.added) != 0 {
		t.Fatalf("expected self-announced endpoint to be suppressed, got %d notifications", len(l.added))
	}
}

func TestDiscoveryRegistryIngestIsIdempotent(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	ep := validEndpoint()
	r.ingest("key-1", ep)
	r.ingest("key-1", ep.Clone())

	if len(l.added) != 1 {
		t.Fatalf("expected identical re-ingest to be a no-op, got %d notifications", len(l.added))
	}
}

func TestDiscoveryRegistryIngestSuppressesCallbackEvenWhenValueChanges(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	ep := validEndpoint()
	r.ingest("key-1", ep)

	updated := ep.Clone()
	updated[constant.PropTopicName] = "a-different-topic"
	r.ingest("key-1", updated)

	if len(l.added) != 1 {
		t.Fatalf("expected an Update on an already-present key to stay silent, got %d notifications", len(l.added))
	}
}

func TestDiscoveryRegistryRetractUnknownKeyIsSafe(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	r.retract("never-seen")

	if len(l.removed) != 0 {
		t.Fatalf("expected no removal notification for unknown key, got %d", len(l.removed))
	}
}

func TestDiscoveryRegistryRetract(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	ep := validEndpoint()
	r.ingest("key-1", ep)
	r.retract("key-1")

	if len(l.removed) != 1 {
		t.Fatalf("expected 1 removal notification, got %d", len(l.removed))
	}
}

func TestDiscoveryRegistryAttachListenerReplaysExisting(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	ep := validEndpoint()
	r.ingest("key-1", ep)

	l := &recordingListener{}
	r.attachListener(l)

	if len(l.added) != 1 {
		t.Fatalf("expected catch-up replay of 1 existing endpoint, got %d", len(l.added))
	}
}

func TestDiscoveryRegistryDetachListenerStopsNotifications(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)
	r.detachListener(l)

	r.ingest("key-1", validEndpoint())

	if len(l.added) != 0 {
		t.Fatalf("expected detached listener to receive nothing, got %d", len(l.added))
	}
}

func TestDiscoveryRegistryPurgeAll(t *testing.T) {
	r := newDiscoveryRegistry("local-fw", nil)
	l := &recordingListener{}
	r.attachListener(l)

	r.ingest("key-1", validEndpoint())
	r.purgeAll()

	if len(l.removed) != 1 {
		t.Fatalf("expected purgeAll to emit 1 removal, got %d", len(l.removed))
	}
}
