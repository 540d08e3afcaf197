package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eugenway/perpsim/simkernel"
)

func TestHealthEndpointAlwaysOk(t *testing.T) {
	srv := NewServer(make(chan ApiCommand, 1), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("resp.Success = false, want true")
	}
}

func TestOrderEndpointRoundTripsThroughCommandAgent(t *testing.T) {
	k := simkernel.NewKernelAt(0, simkernel.NewFixedLatency(0, 0), 10, nil)
	agent := NewCommandAgent(1, 2, 10, nil)
	k.AddAgent(agent)

	srv := NewServer(agent.Commands, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx, 1000)
		close(done)
	}()

	body, _ := json.Marshal(map[string]any{"symbol": "BTC", "side": "buy", "qty": 1.5})
	req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	cancel()
	<-done

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("resp.Success = false, message = %q", resp.Message)
	}
}

func TestOrderEndpointRejectsMissingSide(t *testing.T) {
	k := simkernel.NewKernelAt(0, simkernel.NewFixedLatency(0, 0), 10, nil)
	agent := NewCommandAgent(1, 2, 10, nil)
	k.AddAgent(agent)
	srv := NewServer(agent.Commands, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx, 1000)
		close(done)
	}()

	body, _ := json.Marshal(map[string]any{"symbol": "BTC", "qty": 1.0})
	req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	cancel()
	<-done

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDispatchTimesOutWhenNoAgentDrainsCommands(t *testing.T) {
	commands := make(chan ApiCommand, 1)
	srv := NewServer(commands, nil)

	// Drain the channel ourselves but never answer, simulating a stalled
	// or absent CommandAgent.
	go func() {
		<-commands
	}()

	start := time.Now()
	origTimeout := CommandTimeout
	_ = origTimeout

	body, _ := json.Marshal(map[string]any{"symbol": "BTC"})
	req := httptest.NewRequest(http.MethodPost, "/preview", bytes.NewReader(body))
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(CommandTimeout + 2*time.Second):
		t.Fatal("handler did not return within timeout budget")
	}

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
	var resp ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "timeout waiting for response" {
		t.Errorf("message = %q, want %q", resp.Message, "timeout waiting for response")
	}
	if time.Since(start) < CommandTimeout {
		t.Errorf("returned before CommandTimeout elapsed")
	}
}

func TestQueueFullReturns503(t *testing.T) {
	commands := make(chan ApiCommand) // unbuffered and undrained: any send blocks
	srv := NewServer(commands, nil)

	body, _ := json.Marshal(map[string]any{"symbol": "BTC"})
	req := httptest.NewRequest(http.MethodPost, "/preview", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
