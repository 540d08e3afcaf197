package fanout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eugenway/perpsim/simkernel"
)

func newTestServer(h *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(h.ServeWS))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestOnEventReachesConnectedSubscriber(t *testing.T) {
	h := NewHub(nil, nil)
	srv := newTestServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	waitForSubscribers(t, h, 1)

	h.OnEvent(simkernel.Event{Kind: simkernel.EventOracleTick, Symbol: "BTC"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(data), "BTC") {
		t.Errorf("message = %q, want it to contain BTC", data)
	}
}

func TestClosedSubscriberIsReclaimed(t *testing.T) {
	h := NewHub(nil, nil)
	srv := newTestServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForSubscribers(t, h, 1)

	conn.Close()
	waitForSubscribers(t, h, 0)
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	h := NewHub(nil, nil)
	srv := newTestServer(h)
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()

	waitForSubscribers(t, h, 2)

	h.OnEvent(simkernel.Event{Kind: simkernel.EventOracleTick, Symbol: "ETH"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("ReadMessage: %v", err)
		}
	}
}

func TestInboundCommandForwardsAndBroadcastsResponse(t *testing.T) {
	commands := make(chan simkernel.ApiCommand, 1)
	h := NewHub(nil, commands)
	srv := newTestServer(h)
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	waitForSubscribers(t, h, 2)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"action":"status","symbol":"BTC"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	select {
	case cmd := <-commands:
		cmd.Respond(simkernel.ApiResponse{Success: true, Message: "ok"})
	case <-time.After(2 * time.Second):
		t.Fatal("command never reached the shared channel")
	}

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var frame struct {
			Type    string `json:"type"`
			Success bool   `json:"success"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("unmarshal response frame: %v", err)
		}
		if frame.Type != "response" || !frame.Success {
			t.Errorf("frame = %+v, want type=response success=true", frame)
		}
	}
}

func TestInboundMalformedCommandGetsErrorFrameOnly(t *testing.T) {
	commands := make(chan simkernel.ApiCommand, 1)
	h := NewHub(nil, commands)
	srv := newTestServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitForSubscribers(t, h, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if frame.Type != "error" {
		t.Errorf("frame.Type = %q, want %q", frame.Type, "error")
	}

	select {
	case <-commands:
		t.Fatal("malformed frame should not have reached the command channel")
	case <-time.After(100 * time.Millisecond):
	}
}

func waitForSubscribers(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.SubscriberCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("SubscriberCount() did not reach %d within timeout, last was %d", want, h.SubscriberCount())
}
