package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/engine"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/logger"
	"github.com/MRamiBalles/EternalSisyphus/server/internal/platform/ratelimit"
)

type wsHarness struct {
	hub    *Hub
	engine *engine.Engine
	conn   *websocket.Conn
}

func newWSHarness(t *testing.T, limiter *ratelimit.Limiter, poll bool) *wsHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	eng := newTestEngine(t)
	opts := HubOptions{BroadcastBuffer: 256, ClientSendBuffer: 64, PollInterval: 10 * time.Millisecond}
	hub := NewHub(eng, limiter, opts, logger.Discard())
	go hub.Run(ctx)
	if poll {
		hub.StartEventPoller(ctx)
	}

	mux := http.NewServeMux()
	hub.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &wsHarness{hub: hub, engine: eng, conn: conn}
}

// next reads messages until one of the wanted type arrives.
func (h *wsHarness) next(t *testing.T, msgType string) json.RawMessage {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func (h *wsHarness) send(t *testing.T, msgType string) {
	t.Helper()
	if err := h.conn.WriteJSON(VisitorMessage{Type: msgType}); err != nil {
		t.Fatal(err)
	}
}

func TestWebSocketGreetsWithState(t *testing.T) {
	h := newWSHarness(t, nil, false)

	var s engine.Snapshot
	if err := json.Unmarshal(h.next(t, MsgTypeState), &s); err != nil {
		t.Fatal(err)
	}
	if s.Witnesses != 1 {
		t.Errorf("witnesses = %d", s.Witnesses)
	}
	if h.hub.ClientCount() != 1 {
		t.Errorf("client count = %d", h.hub.ClientCount())
	}
}

func TestWebSocketActions(t *testing.T) {
	h := newWSHarness(t, nil, false)
	h.next(t, MsgTypeState)

	h.send(t, "encourage")
	var out engine.Outcome
	json.Unmarshal(h.next(t, MsgTypeFeedback), &out)
	if out.Command != "encourage" || out.Feedback == "" {
		t.Errorf("outcome = %+v", out)
	}

	h.send(t, "witness")
	out = engine.Outcome{}
	json.Unmarshal(h.next(t, MsgTypeFeedback), &out)
	if out.Witnesses != 2 {
		t.Errorf("witnesses = %d", out.Witnesses)
	}

	h.send(t, "dance")
	var e map[string]string
	json.Unmarshal(h.next(t, MsgTypeError), &e)
	if !strings.Contains(e["error"], "unknown action") {
		t.Errorf("error = %v", e)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	h := newWSHarness(t, ratelimit.NewLimiter(0.001, 1), false)
	h.next(t, MsgTypeState)

	h.send(t, "mock")
	h.next(t, MsgTypeFeedback)
	h.send(t, "mock")
	var e map[string]string
	json.Unmarshal(h.next(t, MsgTypeError), &e)
	if e["error"] != "rate limit exceeded" {
		t.Errorf("error = %v", e)
	}
}

func TestPollerForwardsEventsAndState(t *testing.T) {
	h := newWSHarness(t, nil, true)
	h.next(t, MsgTypeState)

	h.engine.Tick()

	var ev struct {
		Type  string `json:"type"`
		Cycle int64  `json:"cycle"`
	}
	json.Unmarshal(h.next(t, MsgTypeEvent), &ev)
	if ev.Cycle != 1 {
		t.Errorf("event cycle = %d", ev.Cycle)
	}

	var s engine.Snapshot
	json.Unmarshal(h.next(t, MsgTypeState), &s)
	if s.Cycle != 1 {
		t.Errorf("state cycle = %d", s.Cycle)
	}
}
