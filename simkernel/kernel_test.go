package simkernel

import (
	"context"
	"testing"
)

// recordingAgent logs every callback invocation it receives, in order, so
// tests can assert on exact delivery sequences.
type recordingAgent struct {
	BaseAgent
	wakeups  []uint64
	messages []Message
	started  bool
	stopped  bool
	onStart  func(api SimulatorApi)
	onWakeup func(api SimulatorApi, nowNs uint64)
	onMsg    func(api SimulatorApi, msg Message)
}

func (a *recordingAgent) OnStart(api SimulatorApi) {
	a.started = true
	if a.onStart != nil {
		a.onStart(api)
	}
}

func (a *recordingAgent) OnStop(SimulatorApi) { a.stopped = true }

func (a *recordingAgent) OnWakeup(api SimulatorApi, nowNs uint64) {
	a.wakeups = append(a.wakeups, nowNs)
	if a.onWakeup != nil {
		a.onWakeup(api, nowNs)
	}
}

func (a *recordingAgent) OnMessage(api SimulatorApi, msg Message) {
	a.messages = append(a.messages, msg)
	if a.onMsg != nil {
		a.onMsg(api, msg)
	}
}

func TestSingleWakeupFires(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	a := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	a.onStart = func(api SimulatorApi) { api.Wakeup(1, 25) }
	k.AddAgent(a)

	k.Run(context.Background(), 10)

	if len(a.wakeups) != 1 {
		t.Fatalf("got %d wakeups, want 1", len(a.wakeups))
	}
	if a.wakeups[0] != 30 {
		t.Errorf("wakeup fired at %d, want 30 (next tick boundary at/after 25)", a.wakeups[0])
	}
}

func TestSendAppliesLatency(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(50, 5), 10, nil)
	receiver := &recordingAgent{BaseAgent: BaseAgent{Id: 2}}
	sender := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	sender.onStart = func(api SimulatorApi) {
		api.Send(1, 2, LimitOrder, EmptyPayload())
	}
	k.AddAgent(receiver)
	k.AddAgent(sender)

	k.Run(context.Background(), 10)

	if len(receiver.messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(receiver.messages))
	}
	// now=0 at Send time (OnStart runs before the first Advance), so
	// delivery time = 0 + network(50) + compute(5) = 55, landing on tick
	// boundary 60.
	if got := receiver.messages[0].At; got != 55 {
		t.Errorf("message At = %d, want 55", got)
	}
}

func TestOrderingUnderTies(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	receiver := &recordingAgent{BaseAgent: BaseAgent{Id: 2}}
	sender := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	sender.onStart = func(api SimulatorApi) {
		api.Send(1, 2, LimitOrder, TextPayload("first"))
		api.Send(1, 2, MarketOrder, TextPayload("second"))
		api.Send(1, 2, CancelOrder, TextPayload("third"))
	}
	k.AddAgent(receiver)
	k.AddAgent(sender)

	k.Run(context.Background(), 10)

	if len(receiver.messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(receiver.messages))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if receiver.messages[i].Payload.Text != w {
			t.Errorf("message[%d].Payload.Text = %q, want %q (FIFO order for same delivery time)", i, receiver.messages[i].Payload.Text, w)
		}
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	sender := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	b := &recordingAgent{BaseAgent: BaseAgent{Id: 2}}
	c := &recordingAgent{BaseAgent: BaseAgent{Id: 3}}
	// Broadcast from a wakeup rather than OnStart, so that b and c are
	// already registered when it runs.
	sender.onStart = func(api SimulatorApi) { api.Wakeup(1, 0) }
	sender.onWakeup = func(api SimulatorApi, _ uint64) {
		api.Broadcast(1, MarketState, EmptyPayload())
	}
	k.AddAgent(sender)
	k.AddAgent(b)
	k.AddAgent(c)

	k.Run(context.Background(), 10)

	if len(sender.messages) != 0 {
		t.Errorf("sender received %d messages from its own broadcast, want 0", len(sender.messages))
	}
	if len(b.messages) != 1 || len(c.messages) != 1 {
		t.Errorf("got %d and %d messages, want 1 and 1", len(b.messages), len(c.messages))
	}
}

func TestUnknownRecipientIsDroppedNotFatal(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	sender := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	sender.onStart = func(api SimulatorApi) {
		api.Send(1, 999, LimitOrder, EmptyPayload())
	}
	k.AddAgent(sender)

	// Must not panic.
	k.Run(context.Background(), 10)
}

func TestMonotonicNowNs(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	var seen []uint64
	a := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	a.onStart = func(api SimulatorApi) {
		api.Wakeup(1, 5)
	}
	a.onWakeup = func(api SimulatorApi, now uint64) {
		seen = append(seen, now)
		if now < 30 {
			api.Wakeup(1, now+10)
		}
	}
	k.AddAgent(a)

	k.Run(context.Background(), 10)

	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("NowNs not monotonic: seen[%d]=%d <= seen[%d]=%d", i, seen[i], i-1, seen[i-1])
		}
	}
}

func TestDeterminismAcrossIdenticalRuns(t *testing.T) {
	run := func() []uint64 {
		k := NewKernelAt(0, NewJitteredLatency(NewFixedLatency(10, 5), 20, 42), 10, nil)
		receiver := &recordingAgent{BaseAgent: BaseAgent{Id: 2}}
		sender := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
		sender.onStart = func(api SimulatorApi) {
			for i := 0; i < 5; i++ {
				api.Send(1, 2, LimitOrder, EmptyPayload())
			}
		}
		k.AddAgent(receiver)
		k.AddAgent(sender)
		k.Run(context.Background(), 10)

		var times []uint64
		for _, m := range receiver.messages {
			times = append(times, m.At)
		}
		return times
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("got %d and %d messages across identical runs", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("delivery[%d] diverged across identical runs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestStopAllCalledOnEveryAgent(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	a := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	b := &recordingAgent{BaseAgent: BaseAgent{Id: 2}}
	k.AddAgent(a)
	k.AddAgent(b)

	k.Run(context.Background(), 3)

	if !a.stopped || !b.stopped {
		t.Errorf("OnStop not called on every agent: a=%v b=%v", a.stopped, b.stopped)
	}
}

func TestRunStopsEarlyWhenContextCancelled(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	a := &recordingAgent{BaseAgent: BaseAgent{Id: 1}}
	k.AddAgent(a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k.Run(ctx, 1000)

	if !a.stopped {
		t.Errorf("OnStop not called after context cancellation")
	}
}

func TestAgentCountReflectsRegistrations(t *testing.T) {
	k := NewKernelAt(0, NewFixedLatency(0, 0), 10, nil)
	if k.AgentCount() != 0 {
		t.Fatalf("AgentCount() = %d, want 0", k.AgentCount())
	}
	k.AddAgent(&recordingAgent{BaseAgent: BaseAgent{Id: 1}})
	k.AddAgent(&recordingAgent{BaseAgent: BaseAgent{Id: 2}})
	if k.AgentCount() != 2 {
		t.Errorf("AgentCount() = %d, want 2", k.AgentCount())
	}
}
