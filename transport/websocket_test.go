package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"openstage/protocol"

	"nhooyr.io/websocket"
)

func serveWebSocket(t *testing.T, handle func(*WebSocketServer)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		handle(NewWebSocketServer(conn))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func awaitState(t *testing.T, tr interface{ State() State }, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.State().Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("want %s, stuck at %s", want, tr.State().Status)
}

func awaitServerMessage(t *testing.T, tr Transport) *protocol.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := tr.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if msg != nil {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no message before deadline")
	return nil
}

func TestWebSocketRoundTrip(t *testing.T) {
	url := serveWebSocket(t, func(server *WebSocketServer) {
		if err := server.Send(protocol.ServerHandshake(protocol.CurrentVersion())); err != nil {
			t.Errorf("send: %v", err)
			return
		}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			msg, err := server.Receive()
			if err != nil {
				t.Errorf("receive: %v", err)
				return
			}
			if msg == nil {
				time.Sleep(time.Millisecond)
				continue
			}
			if msg.Type != protocol.TypeHandshake {
				t.Errorf("want handshake, got %s", msg.Type)
			}
			return
		}
		t.Error("no client message before deadline")
	})

	dialer := &WebSocketDialer{URL: url}
	client := dialer.Connect()
	defer client.Close()
	awaitState(t, client, StatusConnected)

	msg := awaitServerMessage(t, client)
	if msg.Type != protocol.TypeHandshake {
		t.Fatalf("want handshake, got %s", msg.Type)
	}
	if !msg.Handshake.Version.Compatible(protocol.CurrentVersion()) {
		t.Fatalf("want compatible version, got %s", msg.Handshake.Version)
	}

	if err := client.Send(protocol.ClientHandshake(protocol.CurrentVersion())); err != nil {
		t.Fatal(err)
	}
}

func TestWebSocketMalformedFrameIsOneBadMessage(t *testing.T) {
	url := serveWebSocket(t, func(server *WebSocketServer) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.core.conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
			t.Errorf("write: %v", err)
			return
		}
		if err := server.Send(protocol.ServerHandshake(protocol.CurrentVersion())); err != nil {
			t.Errorf("send: %v", err)
		}
	})

	client := (&WebSocketDialer{URL: url}).Connect()
	defer client.Close()
	awaitState(t, client, StatusConnected)

	// The garbage frame surfaces as a per-message error, then the good one
	// comes through on the same connection.
	sawMalformed := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := client.Receive()
		if errors.Is(err, protocol.ErrMalformedMessage) {
			sawMalformed = true
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		if msg != nil {
			if !sawMalformed {
				t.Fatal("malformed frame should surface before the handshake")
			}
			if msg.Type != protocol.TypeHandshake {
				t.Fatalf("want handshake, got %s", msg.Type)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no handshake before deadline")
}

func TestWebSocketDialFailure(t *testing.T) {
	client := (&WebSocketDialer{URL: "ws://127.0.0.1:1"}).Connect()
	defer client.Close()
	awaitState(t, client, StatusFailed)

	if _, err := client.Receive(); err == nil {
		t.Fatal("failed transport must return its cause")
	}
	if err := client.Send(protocol.ClientHandshake(protocol.CurrentVersion())); err == nil {
		t.Fatal("failed transport must reject sends")
	}
}

func TestWebSocketCloseIsSticky(t *testing.T) {
	url := serveWebSocket(t, func(server *WebSocketServer) {
		awaitState(t, server, StatusConnected)
	})

	client := (&WebSocketDialer{URL: url}).Connect()
	awaitState(t, client, StatusConnected)
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if client.State().Status != StatusClosed {
		t.Fatalf("want closed, got %s", client.State().Status)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Send(protocol.ClientHandshake(protocol.CurrentVersion())); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}
