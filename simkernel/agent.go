package simkernel

// Agent is the lifecycle and message-reaction contract every participant
// in a run must satisfy. The kernel owns an agent for the lifetime of the
// run and invokes these methods directly; an agent exclusively owns its
// own internal state and is never touched except through them. All four
// methods have the zero-value default of doing nothing, via BaseAgent.
type Agent interface {
	ID() AgentId
	OnStart(api SimulatorApi)
	OnStop(api SimulatorApi)
	OnWakeup(api SimulatorApi, nowNs uint64)
	OnMessage(api SimulatorApi, msg Message)
}

// BaseAgent supplies no-op implementations of every Agent callback except
// ID. Embed it to implement only the callbacks an agent actually cares
// about.
type BaseAgent struct {
	Id AgentId
}

func (b BaseAgent) ID() AgentId                     { return b.Id }
func (b BaseAgent) OnStart(SimulatorApi)            {}
func (b BaseAgent) OnStop(SimulatorApi)             {}
func (b BaseAgent) OnWakeup(SimulatorApi, uint64)   {}
func (b BaseAgent) OnMessage(SimulatorApi, Message) {}

// SimulatorApi is the narrow control surface the kernel exposes to an
// agent's callback. Every method is safe to call from OnStart, OnStop,
// OnWakeup, or OnMessage; none of them mutate the agent that is currently
// executing — only the kernel's queue and event bus.
type SimulatorApi interface {
	// NowNs returns the current virtual time.
	NowNs() uint64

	// Send computes at = now + network(from,to) + compute(to) via the
	// kernel's latency model (saturating addition), wraps kind/payload in
	// a Message, and pushes it to the queue. If kind is an order-family
	// or oracle-tick type, a corresponding summary Event is also emitted
	// onto the EventBus synchronously before Send returns.
	Send(from, to AgentId, kind MessageType, payload Payload)

	// Wakeup schedules a Wakeup message to agentId at atNs verbatim; no
	// latency is added. If atNs is before NowNs, the entry still delivers
	// on the next drain rather than being rejected.
	Wakeup(agentId AgentId, atNs uint64)

	// Broadcast pushes one Message per registered agent other than from,
	// each with its own latency computation. A broadcast OracleTick emits
	// exactly one summary Event, not one per recipient.
	Broadcast(from AgentId, kind MessageType, payload Payload)

	// EmitEvent publishes directly to the EventBus; it has no queue
	// interaction.
	EmitEvent(e Event)
}
