package pubsub

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	ep := validEndpoint()

	data, err := Encode(ep)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !endpointEqual(ep, decoded) {
		t.Fatalf("round trip mismatch: got %#v, want %#v", decoded, ep)
	}
}

func TestDecodeRejectsNonObjectRoot(t *testing.T) {
	if _, err := Decode([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatal("expected error for non-object root")
	}
}

func TestDecodeRejectsInvalidEndpoint(t *testing.T) {
	if _, err := Decode([]byte(`{"uuid":"only-this-field"}`)); err == nil {
		t.Fatal("expected validation error for incomplete endpoint")
	}
}

func TestDecodeRejectsNonStringField(t *testing.T) {
	if _, err := Decode([]byte(`{"uuid": 1}`)); err == nil {
		t.Fatal("expected error for non-string field value")
	}
}
