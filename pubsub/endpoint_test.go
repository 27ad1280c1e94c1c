package pubsub

import (
	"testing"

	"github.com/fireflycore/pubsub-discovery/constant"
)

func validEndpoint() Endpoint {
	return Endpoint{
		constant.PropUUID:          "11111111-1111-1111-1111-111111111111",
		constant.PropFrameworkUUID: "fw-1",
		constant.PropAdminType:     "default",
		constant.PropSerializer:    "json",
		constant.PropTopicScope:    "default",
		constant.PropTopicName:    "topicA",
		constant.PropType:         constant.TypePublisher,
	}
}

func TestEndpointValidateMissingField(t *testing.T) {
	ep := validEndpoint()
	delete(ep, constant.PropTopicName)

	if err := ep.Validate(); err == nil {
		t.Fatal("expected error for missing topic.name")
	}
}

func TestEndpointValidateBadType(t *testing.T) {
	ep := validEndpoint()
	ep[constant.PropType] = "bogus"

	err := ep.Validate()
	if err == nil {
		t.Fatal("expected error for invalid type")
	}
	var pErr *Error
	if !asError(err, &pErr) || pErr.Kind != ErrInvalidEndpoint {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
}

func TestEndpointKey(t *testing.T) {
	ep := validEndpoint()
	got := ep.Key("pubsub")
	want := "pubsub/default/default/topicA/11111111-1111-1111-1111-111111111111"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEndpointCloneIsIndependent(t *testing.T) {
	ep := validEndpoint()
	clone := ep.Clone()
	clone[constant.PropTopicName] = "other"

	if ep[constant.PropTopicName] == "other" {
		t.Fatal("mutating clone affected original")
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
