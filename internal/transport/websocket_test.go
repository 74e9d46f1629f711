// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+WebSocketPath, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for wst.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer wst.Close()

	c1 := dial(t, wst)
	c2 := dial(t, wst)
	for wst.ClientCount() < 2 {
		time.Sleep(5 * time.Millisecond)
	}

	want := Frame{Sequence: 42, Timestamp: time.Unix(1700000000, 0).UTC(), Bands: []float64{0.02, 0.75}}
	if err := wst.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for i, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Frame
		if err := c.ReadJSON(&got); err != nil {
			t.Fatalf("client %d ReadJSON: %v", i, err)
		}
		if got.Sequence != want.Sequence || !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("client %d got %+v, want %+v", i, got, want)
		}
		if len(got.Bands) != 2 || got.Bands[1] != 0.75 {
			t.Errorf("client %d bands = %v", i, got.Bands)
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer wst.Close()

	c := dial(t, wst)
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnected client was not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketSendWithoutClients(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer wst.Close()

	// More frames than the queue holds must never block.
	for i := 0; i < broadcastQueue*4; i++ {
		if err := wst.Send(Frame{Sequence: uint64(i)}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
}

func TestWebSocketClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := wst.Send(Frame{}); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Send after Close = %v, want ErrTransportClosed", err)
	}
}
