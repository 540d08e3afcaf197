package simkernel

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandBufferSize is the capacity of the channel carrying ApiCommands
// from the HTTP and WebSocket command surfaces into a CommandAgent,
// matching the original's crossbeam_channel::bounded::<ApiCommand>(100).
const CommandBufferSize = 100

// CommandTimeout bounds how long a command surface waits for a reply
// before reporting a timeout to its caller.
const CommandTimeout = 5 * time.Second

// ApiCommand is one request into the simulation from either the HTTP or
// the WebSocket command surface: open/close/status/preview, keyed by
// symbol with optional side/qty/leverage. response is unexported so the
// only way to obtain one is NewApiCommand or ParseApiCommand, which
// always allocate it — an ApiCommand can never be in flight without
// somewhere to deliver its reply.
type ApiCommand struct {
	Action   string   `json:"action"`
	Symbol   string   `json:"symbol"`
	Side     *Side    `json:"side,omitempty"`
	Qty      *float64 `json:"qty,omitempty"`
	Leverage *uint32  `json:"leverage,omitempty"`

	response chan ApiResponse
}

// ApiResponse is the result of an ApiCommand, returned to whichever
// transport submitted it.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewApiCommand constructs an ApiCommand with its reply channel ready.
func NewApiCommand(action, symbol string, side *Side, qty *float64, leverage *uint32) ApiCommand {
	return ApiCommand{
		Action: action, Symbol: symbol, Side: side, Qty: qty, Leverage: leverage,
		response: make(chan ApiResponse, 1),
	}
}

// ParseApiCommand decodes a JSON command frame, as received on the
// WebSocket command surface, into an ApiCommand ready to submit.
func ParseApiCommand(data []byte) (ApiCommand, error) {
	var wire struct {
		Action   string   `json:"action"`
		Symbol   string   `json:"symbol"`
		Side     *Side    `json:"side,omitempty"`
		Qty      *float64 `json:"qty,omitempty"`
		Leverage *uint32  `json:"leverage,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return ApiCommand{}, fmt.Errorf("invalid command: %w", err)
	}
	if wire.Symbol == "" {
		return ApiCommand{}, fmt.Errorf("invalid command: symbol is required")
	}
	return NewApiCommand(wire.Action, wire.Symbol, wire.Side, wire.Qty, wire.Leverage), nil
}

// Respond delivers resp to whoever is waiting on Wait. A second call is
// dropped rather than blocking, since nothing will still be waiting.
func (c ApiCommand) Respond(resp ApiResponse) {
	select {
	case c.response <- resp:
	default:
	}
}

// Wait blocks for a reply up to timeout. ok is false if timeout elapses
// first.
func (c ApiCommand) Wait(timeout time.Duration) (resp ApiResponse, ok bool) {
	select {
	case resp = <-c.response:
		return resp, true
	case <-time.After(timeout):
		return ApiResponse{}, false
	}
}
