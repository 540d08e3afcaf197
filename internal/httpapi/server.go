// Package httpapi exposes the simulator's command/response surface over
// HTTP: POST /order, POST /close, POST /preview, GET /status, GET
// /health. Every handler that touches the kernel sends a
// simkernel.ApiCommand on a bounded channel and waits on its reply, so
// the kernel's single goroutine is the only thing that ever reads an
// ApiCommand or mutates simulation state. The same ApiCommand/ApiResponse
// types and channel are shared with the WebSocket command surface in
// simkernel/fanout.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/eugenway/perpsim/simkernel"
)

// ApiCommand and ApiResponse are aliases for the shared kernel-side
// types, kept so existing callers and tests in this package don't need
// the simkernel qualifier.
type (
	ApiCommand  = simkernel.ApiCommand
	ApiResponse = simkernel.ApiResponse
)

// CommandBufferSize and CommandTimeout mirror the simkernel constants of
// the same name.
const (
	CommandBufferSize = simkernel.CommandBufferSize
	CommandTimeout    = simkernel.CommandTimeout
)

// Server wires the HTTP command surface to a CommandAgent's Commands
// channel. It never touches the kernel directly.
type Server struct {
	commands chan<- simkernel.ApiCommand
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer builds a Server that submits commands onto commands (normally
// a CommandAgent's Commands field). logger may be nil.
func NewServer(commands chan<- simkernel.ApiCommand, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{commands: commands, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /order", s.handleOrder)
	s.mux.HandleFunc("POST /close", s.handleClose)
	s.mux.HandleFunc("POST /preview", s.handlePreview)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// orderRequest mirrors the JSON body accepted by POST /order and /close.
type orderRequest struct {
	Symbol   string          `json:"symbol"`
	Side     *simkernel.Side `json:"side"`
	Qty      *float64        `json:"qty"`
	Leverage *uint32         `json:"leverage"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, simkernel.ApiResponse{Success: false, Message: "invalid request body"})
		return
	}
	s.dispatch(w, "open", req.Symbol, req.Side, req.Qty, req.Leverage)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, simkernel.ApiResponse{Success: false, Message: "invalid request body"})
		return
	}
	s.dispatch(w, "close", req.Symbol, req.Side, nil, nil)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, simkernel.ApiResponse{Success: false, Message: "invalid request body"})
		return
	}
	s.dispatch(w, "preview", req.Symbol, req.Side, req.Qty, req.Leverage)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "*"
	}
	s.dispatch(w, "status", symbol, nil, nil, nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, simkernel.ApiResponse{Success: true, Message: "ok"})
}

// dispatch submits a command and waits up to simkernel.CommandTimeout for
// a response, writing the standard error envelope on timeout.
func (s *Server) dispatch(w http.ResponseWriter, action, symbol string, side *simkernel.Side, qty *float64, leverage *uint32) {
	cmd := simkernel.NewApiCommand(action, symbol, side, qty, leverage)

	select {
	case s.commands <- cmd:
	default:
		writeJSON(w, http.StatusServiceUnavailable, simkernel.ApiResponse{Success: false, Message: "command queue full"})
		return
	}

	resp, ok := cmd.Wait(simkernel.CommandTimeout)
	if !ok {
		s.logger.Warn("command timed out", "action", action, "symbol", symbol)
		writeJSON(w, http.StatusGatewayTimeout, simkernel.ApiResponse{Success: false, Message: "timeout waiting for response"})
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, resp simkernel.ApiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
