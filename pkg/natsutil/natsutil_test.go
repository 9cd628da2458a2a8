package natsutil

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestPublishMarshalError(t *testing.T) {
	// Channels are not JSON-serializable; the error must surface before any
	// publish is attempted, so a nil connection is safe here.
	if err := Publish(context.Background(), nil, "career.test", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestHeaderCarrier(t *testing.T) {
	c := &headerCarrier{}
	if c.Get("traceparent") != "" {
		t.Fatal("empty carrier should return empty values")
	}
	c.Set("traceparent", "00-abc-def-01")
	if c.Get("traceparent") != "00-abc-def-01" {
		t.Fatalf("got %q", c.Get("traceparent"))
	}
	if len(c.Keys()) != 1 {
		t.Fatalf("keys %v", c.Keys())
	}
}

func TestHeaderCarrierOverMsg(t *testing.T) {
	msg := &nats.Msg{Subject: "career.refresh.completed", Header: nats.Header{}}
	c := (*headerCarrier)(msg)
	c.Set("baggage", "turn=1")
	if msg.Header.Get("baggage") != "turn=1" {
		t.Fatal("carrier writes should land in message headers")
	}
}
