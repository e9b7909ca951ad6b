package transport_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/transport"
	"github.com/google/uuid"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// A closed connection keeps absorbing Send calls without panicking. Broadcast
// fan-outs snapshot the registry before sending, so a connection can be torn
// down between the snapshot and the write.
func TestSendAfterClose(t *testing.T) {
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, nil, transport.ConnectionConfig{}, nil, nil, newTestLogger())

	conn.Close(nil)
	<-conn.Done()

	// Push well past the send buffer; every call must return promptly.
	for i := 0; i < 512; i++ {
		conn.Send([]byte(`{"event":"users:list","payload":[]}`))
	}

	// Closing again is a no-op.
	conn.Close(nil)
}

func TestConcurrentSendDuringClose(t *testing.T) {
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, nil, transport.ConnectionConfig{}, nil, nil, newTestLogger())

	var senders sync.WaitGroup
	for i := 0; i < 8; i++ {
		senders.Add(1)
		go func() {
			defer senders.Done()
			for j := 0; j < 100; j++ {
				conn.Send([]byte(`{"event":"user:activity","payload":{}}`))
			}
		}()
	}
	conn.Close(nil)
	senders.Wait()
	wg.Wait()
}

// An idle client that still answers pings must never be disconnected. Staff
// dashboards frequently sit open for hours without emitting a single event.
func TestIdleConnectionStaysAlive(t *testing.T) {
	logger := newTestLogger()
	received := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Errorf("Accept failed: %v", err)
			return
		}
		var wg sync.WaitGroup
		conn := transport.NewConnection(r.Context(), &wg, ws,
			transport.ConnectionConfig{PingInterval: 25 * time.Millisecond},
			func(ctx context.Context, connID uuid.UUID, msg []byte) {
				received <- msg
			}, nil, logger)
		conn.Run()
		<-conn.Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close(websocket.StatusNormalClosure, "")

	// Keep a reader running so the client library answers the pings.
	go func() {
		for {
			if _, _, err := client.Read(ctx); err != nil {
				return
			}
		}
	}()

	// Idle through several ping intervals.
	time.Sleep(200 * time.Millisecond)

	if err := client.Write(ctx, websocket.MessageText, []byte(`{"event":"users:get-list"}`)); err != nil {
		t.Fatalf("Connection was dropped while idle: %v", err)
	}
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("Message after the idle period never reached the handler")
	}
}
