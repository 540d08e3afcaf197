// Package fanout exposes a run's Event stream, and its command surface,
// to remote observers over WebSocket. It subscribes once to the kernel's
// EventBus and re-publishes every Event as JSON to each connected
// client, with its own buffering and back-pressure so a slow or dead
// remote subscriber never blocks, or even slows down, the run. It also
// accepts inbound command frames from clients, forwarding them onto the
// same bounded ApiCommand channel a CommandAgent drains, and broadcasts
// every resulting ApiResponse back out to all connected clients.
package fanout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eugenway/perpsim/simkernel"
)

const (
	outboundBufferSize = 100
	writeTimeout       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber is one connected remote observer: a buffered outbound channel
// drained by a dedicated pump goroutine, so Broadcast never blocks on a
// slow socket write.
type subscriber struct {
	id       uuid.UUID
	conn     *websocket.Conn
	outbound chan []byte
	done     chan struct{}
}

// Hub fans Events out to every currently-connected WebSocket subscriber,
// and fans inbound commands from any subscriber into a shared ApiCommand
// channel. It implements simkernel.EventListener; once subscribed to the
// kernel's EventBus, an Emit there reaches every remote subscriber
// synchronously with respect to the bus (the JSON encode and channel
// send happen inline), but never waits on a subscriber's actual network
// write.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]*subscriber
	logger      *slog.Logger
	commands    chan<- simkernel.ApiCommand
}

// NewHub creates an empty Hub. commands is the channel inbound ApiCommand
// frames are forwarded onto — normally a CommandAgent's Commands field,
// shared with the HTTP command surface. A nil commands disables the
// inbound command path: frames are still read (so ping/close control
// frames are processed) but every command is rejected. A nil logger is
// replaced with a discard logger.
func NewHub(logger *slog.Logger, commands chan<- simkernel.ApiCommand) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Hub{subscribers: make(map[uuid.UUID]*subscriber), logger: logger, commands: commands}
}

// ServeWS upgrades r to a WebSocket connection and registers it as a
// subscriber. It blocks until the connection closes, so callers should
// invoke it directly from an http.HandlerFunc.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		id:       uuid.New(),
		conn:     conn,
		outbound: make(chan []byte, outboundBufferSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	h.logger.Info("fanout subscriber connected", "subscriber_id", sub.id)

	go h.readPump(sub)
	h.writePump(sub)
}

// OnEvent implements simkernel.EventListener. It serializes e once and
// hands the encoded bytes to every subscriber's outbound channel.
// Subscribers whose channel is full are not blocked on: they are closed
// and removed from the Hub during this same broadcast.
func (h *Hub) OnEvent(e simkernel.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("fanout: failed to marshal event", "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscribers {
		select {
		case sub.outbound <- data:
		default:
			h.logger.Warn("fanout subscriber outbound buffer full, dropping", "subscriber_id", id)
			h.removeLocked(id)
		}
	}
}

// sendTo delivers data to a single subscriber, dropping it rather than
// blocking if that subscriber's outbound buffer is full.
func (h *Hub) sendTo(sub *subscriber, data []byte) {
	select {
	case sub.outbound <- data:
	default:
	}
}

// removeLocked closes and unregisters a dead subscriber. Callers must
// hold h.mu.
func (h *Hub) removeLocked(id uuid.UUID) {
	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.done)
	sub.conn.Close()
}

// SubscriberCount returns the number of currently registered subscribers.
// A subscriber is removed once its read or write pump fails, or when its
// outbound buffer is full during a broadcast, so this may briefly count a
// client that has just disconnected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) writePump(sub *subscriber) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(sub.id)
		h.mu.Unlock()
		h.logger.Info("fanout subscriber disconnected", "subscriber_id", sub.id)
	}()

	for {
		select {
		case data, ok := <-sub.outbound:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-sub.done:
			return
		}
	}
}

// readPump reads every inbound frame from sub, parsing it as an
// ApiCommand and forwarding it onto the shared command channel, the same
// path the HTTP command surface submits through. A frame that doesn't
// parse gets an error frame written back to the sender alone; a command
// accepted onto the channel gets its eventual ApiResponse broadcast to
// every connected subscriber, matching the original's response_rx
// fan-out (responses aren't correlated back to the submitting client,
// since WS commands carry no request id).
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(sub.id)
		h.mu.Unlock()
	}()

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleInbound(sub, data)
	}
}

func (h *Hub) handleInbound(sub *subscriber, data []byte) {
	cmd, err := simkernel.ParseApiCommand(data)
	if err != nil {
		h.logger.Warn("fanout: invalid command frame", "subscriber_id", sub.id, "error", err)
		h.sendTo(sub, errorFrame(err))
		return
	}

	if h.commands == nil {
		h.sendTo(sub, errorFrame(fmt.Errorf("command surface not available")))
		return
	}

	select {
	case h.commands <- cmd:
		go h.awaitResponse(cmd)
	default:
		h.logger.Warn("fanout: command queue full, dropping", "subscriber_id", sub.id)
		h.sendTo(sub, responseFrame(simkernel.ApiResponse{Success: false, Message: "command queue full"}))
	}
}

// awaitResponse blocks for cmd's reply and broadcasts it to every
// connected subscriber once it arrives (or once it times out).
func (h *Hub) awaitResponse(cmd simkernel.ApiCommand) {
	resp, ok := cmd.Wait(simkernel.CommandTimeout)
	if !ok {
		resp = simkernel.ApiResponse{Success: false, Message: "timeout waiting for response"}
	}
	h.broadcast(responseFrame(resp))
}

// wsResponseFrame tags a broadcast ApiResponse so clients can tell it
// apart from a bare Event frame, which is self-describing via its own
// event_type field.
type wsResponseFrame struct {
	Type string `json:"type"`
	simkernel.ApiResponse
}

func responseFrame(resp simkernel.ApiResponse) []byte {
	data, err := json.Marshal(wsResponseFrame{Type: "response", ApiResponse: resp})
	if err != nil {
		return []byte(`{"type":"response","success":false,"message":"failed to encode response"}`)
	}
	return data
}

func errorFrame(err error) []byte {
	data, marshalErr := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{Type: "error", Message: err.Error()})
	if marshalErr != nil {
		return []byte(`{"type":"error","message":"invalid command"}`)
	}
	return data
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
