package ws

import (
	"errors"
	"net"
	"testing"
)

func TestClientSendBufferFull(t *testing.T) {
	c := newClient(nil) // no write pump draining

	for i := 0; i < sendBufferSize; i++ {
		if err := c.Send([]byte("x")); err != nil {
			t.Fatalf("send %d returned error: %v", i, err)
		}
	}
	if err := c.Send([]byte("overflow")); !errors.Is(err, errSlowClient) {
		t.Errorf("expected errSlowClient on a full buffer, got %v", err)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	c := newClient(nil)
	c.close()
	c.close() // closing twice is safe

	if err := c.Send([]byte("x")); !errors.Is(err, net.ErrClosed) {
		t.Errorf("expected net.ErrClosed after close, got %v", err)
	}
}
