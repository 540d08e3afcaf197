package simkernel

import (
	"context"
	"log/slog"
	"time"

	"github.com/eugenway/perpsim/simkernel/eventbus"
	"github.com/eugenway/perpsim/simkernel/queue"
)

// Kernel is the single-threaded, cooperatively-driven event loop: virtual
// time, a priority queue of future deliveries, the agent registry, and
// the EventBus all live here and are mutated only from the goroutine that
// calls Run.
type Kernel struct {
	clock    *Clock
	tickNs   uint64
	latency  LatencyModel
	queue    *queue.Queue[Message]
	sequence uint64

	registry *registry

	bus *eventbus.Bus

	// realtimeTickMs, when non-zero, makes Run sleep for the remainder of
	// each tick's wall-clock budget before advancing.
	realtimeTickMs uint64

	logger *slog.Logger
}

// NewKernel constructs a Kernel seeded from the wall clock. logger may be
// nil, in which case log output is discarded.
func NewKernel(latency LatencyModel, tickNs uint64, logger *slog.Logger) (*Kernel, error) {
	clock, err := NewClock()
	if err != nil {
		return nil, err
	}
	return newKernel(clock, latency, tickNs, logger), nil
}

// NewKernelAt constructs a Kernel with an explicit, non-wall-clock start
// time, for deterministic tests.
func NewKernelAt(startNs uint64, latency LatencyModel, tickNs uint64, logger *slog.Logger) *Kernel {
	return newKernel(NewClockAt(startNs), latency, tickNs, logger)
}

func newKernel(clock *Clock, latency LatencyModel, tickNs uint64, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Kernel{
		clock:    clock,
		tickNs:   tickNs,
		latency:  latency,
		queue:    queue.New[Message](),
		registry: newRegistry(),
		bus:      eventbus.New(logger),
		logger:   logger,
	}
}

// SetRealtime enables realtime pacing: Run sleeps for the remainder of
// each tick's wall-clock budget (tickMs) after draining the queue.
func (k *Kernel) SetRealtime(tickMs uint64) {
	k.realtimeTickMs = tickMs
}

// EventBus returns the kernel's event bus, for subscribing loggers and
// remote fan-out before Run is called.
func (k *Kernel) EventBus() *eventbus.Bus {
	return k.bus
}

// NowNs implements SimulatorApi.
func (k *Kernel) NowNs() uint64 { return k.clock.Now() }

// AddAgent registers agent, assigns it a stable slot, and calls OnStart
// with the kernel as its SimulatorApi. OnStart may call back into the
// kernel to schedule its first wakeup or send messages.
func (k *Kernel) AddAgent(agent Agent) {
	id := agent.ID()
	k.logger.Debug("registering agent", "agent_id", id)
	agent.OnStart(k)
	k.registry.add(id, agent)
}

// AgentCount returns the number of registered agents.
func (k *Kernel) AgentCount() int { return k.registry.len() }

// Run drives the simulation for up to maxTicks ticks, or until the queue
// empties or ctx is cancelled. It never panics and never returns an error:
// dispatch failures (unknown recipients, malformed payloads) are logged
// and dropped per the kernel's tolerant error policy.
func (k *Kernel) Run(ctx context.Context, maxTicks int) {
	k.logger.Info("kernel starting", "agents", k.registry.len(), "tick_ns", k.tickNs, "max_ticks", maxTicks)

	for tick := 0; tick < maxTicks; tick++ {
		select {
		case <-ctx.Done():
			k.logger.Info("kernel stopping: context cancelled", "tick", tick)
			k.stopAll()
			return
		default:
		}

		tickStart := time.Now()
		k.clock.Advance(k.tickNs)

		k.drain()

		if k.queue.Len() == 0 {
			k.logger.Debug("queue empty, stopping early", "tick", tick+1)
			break
		}

		if k.realtimeTickMs > 0 {
			elapsed := time.Since(tickStart)
			target := time.Duration(k.realtimeTickMs) * time.Millisecond
			if elapsed < target {
				time.Sleep(target - elapsed)
			}
		}
	}

	k.stopAll()
	k.logger.Info("kernel finished", "now_ns", k.clock.Now())
}

// drain delivers every queue entry whose At is <= the current virtual
// time, in (At, Sequence) order.
func (k *Kernel) drain() {
	for {
		entry, ok := k.queue.PeekMin()
		if !ok || entry.At > k.clock.Now() {
			return
		}
		entry, _ = k.queue.PopMin()
		k.deliver(entry.Value)
	}
}

// deliver invokes the appropriate callback on the recipient agent. The
// agent is checked out of the registry for the duration of the callback
// and checked back in immediately after, so it is either parked in the
// registry or held by the dispatcher on the call stack — never both,
// never neither.
func (k *Kernel) deliver(msg Message) {
	agent, idx, ok := k.registry.checkOut(msg.To)
	if !ok {
		k.logger.Warn("message scheduled for unknown agent, dropping", "to", msg.To, "msg_type", msg.Type, "at", msg.At)
		return
	}
	defer k.registry.checkIn(idx, agent)

	if msg.Type == Wakeup {
		agent.OnWakeup(k, k.clock.Now())
	} else {
		agent.OnMessage(k, msg)
	}
}

// stopAll calls OnStop on every agent in registration order.
func (k *Kernel) stopAll() {
	k.registry.forEachInOrder(func(agent Agent) {
		agent.OnStop(k)
	})
}

// Send implements SimulatorApi.
func (k *Kernel) Send(from, to AgentId, kind MessageType, payload Payload) {
	at := k.scheduledAt(from, to)
	msg := Message{From: from, To: to, Type: kind, At: at, Payload: payload}
	k.emitSendEvent(msg)
	k.push(msg)
}

// Wakeup implements SimulatorApi.
func (k *Kernel) Wakeup(agentId AgentId, atNs uint64) {
	k.push(Message{From: agentId, To: agentId, Type: Wakeup, At: atNs, Payload: EmptyPayload()})
}

// Broadcast implements SimulatorApi.
func (k *Kernel) Broadcast(from AgentId, kind MessageType, payload Payload) {
	if kind == OracleTick && payload.Kind == PayloadOracleTick {
		k.bus.Emit(oracleTickEvent(k.clock.Now(), payload.OracleTick))
	}

	for _, id := range k.registry.ids() {
		if id == from {
			continue
		}
		at := k.scheduledAt(from, id)
		k.push(Message{From: from, To: id, Type: kind, At: at, Payload: payload})
	}
}

// EmitEvent implements SimulatorApi.
func (k *Kernel) EmitEvent(e Event) {
	k.bus.Emit(e)
}

func (k *Kernel) scheduledAt(from, to AgentId) uint64 {
	network := k.latency.DelayNs(from, to)
	compute := k.latency.ComputeNs(to)
	return saturatingAdd(k.clock.Now(), network, compute)
}

func (k *Kernel) push(msg Message) {
	k.sequence++
	k.queue.Push(queue.Entry[Message]{At: msg.At, Sequence: k.sequence, Value: msg})
}

// emitSendEvent publishes the summary Event a Send of an order-family or
// oracle-tick message generates, before the message itself is queued.
func (k *Kernel) emitSendEvent(msg Message) {
	switch msg.Type {
	case LimitOrder, MarketOrder, CloseOrder, CancelOrder, ModifyOrder:
		k.bus.Emit(orderLogEvent(k.clock.Now(), msg))
	case OracleTick:
		if msg.Payload.Kind == PayloadOracleTick {
			k.bus.Emit(oracleTickEvent(k.clock.Now(), msg.Payload.OracleTick))
		}
	}
}

func orderLogEvent(ts uint64, msg Message) Event {
	ev := Event{Kind: EventOrderLog, Timestamp: ts, From: msg.From, To: msg.To, MsgType: msg.Type}
	switch msg.Payload.Kind {
	case PayloadLimitOrder:
		p := msg.Payload.LimitOrder
		ev.Symbol, ev.Side, ev.Price, ev.Qty = p.Symbol, &p.Side, &p.Price, &p.Qty
	case PayloadMarketOrder:
		p := msg.Payload.MarketOrder
		ev.Symbol, ev.Side, ev.Qty = p.Symbol, &p.Side, &p.Qty
	}
	return ev
}

func oracleTickEvent(ts uint64, p OracleTickPayload) Event {
	return Event{
		Kind:      EventOracleTick,
		Timestamp: ts,
		Symbol:    p.Symbol,
		PriceMin:  p.Price.Min,
		PriceMax:  p.Price.Max,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
