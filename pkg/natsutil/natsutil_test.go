package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "test"}
	c := (*headerCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("Get on empty headers = %q", got)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}
	if msg.Header.Get("traceparent") != "00-abc-def-01" {
		t.Error("Set did not write through to the message headers")
	}

	c.Set("baggage", "k=v")
	keys := c.Keys()
	if len(keys) != 2 {
		t.Errorf("Keys = %v", keys)
	}
}
