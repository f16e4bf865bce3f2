package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()

	e := echo.New()
	e.GET("/ws", h.Handle)
	srv := httptest.NewServer(e)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.clients)
		h.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestHubBroadcastDeliversJSON(t *testing.T) {
	h := NewHub(testLogger(t))
	conn, cleanup := dialHub(t, h)
	defer cleanup()

	h.Broadcast(map[string]string{"status": "ok"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

// Scheduled scans, on-demand HTTP scans, and Kafka-triggered scans can all
// finish at the same moment; their broadcasts must not interleave frames on a
// single connection.
func TestHubConcurrentBroadcasts(t *testing.T) {
	h := NewHub(testLogger(t))
	conn, cleanup := dialHub(t, h)
	defer cleanup()

	const goroutines = 16
	const perGoroutine = 4

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				h.Broadcast(map[string]int{"seq": j})
			}
		}()
	}

	for i := 0; i < goroutines*perGoroutine; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		var got map[string]int
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("corrupted frame %d: %v", i, err)
		}
	}
	wg.Wait()
}
