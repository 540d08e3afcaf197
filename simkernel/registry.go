package simkernel

// slot is one entry in the agent registry: a parked agent at a stable
// position. The kernel detaches a slot's Agent onto the call stack for
// the duration of a callback and reattaches it at the same index
// afterwards, so an agent is either parked here or held by the dispatcher
// — never both, never neither.
type slot struct {
	id    AgentId
	agent Agent
}

// registry is the kernel's agent registry: an ordered list of slots plus
// an AgentId->index map for O(1) lookup. An agent is either parked here
// or detached onto the dispatcher's call stack for the duration of its
// callback — never both, never neither. checkOut/checkIn implement that
// detach/reattach directly, the same way the original kernel moved an
// agent out of its slice before invoking it and moved it back afterward.
type registry struct {
	slots []slot
	index map[AgentId]int
}

func newRegistry() *registry {
	return &registry{index: make(map[AgentId]int)}
}

// add appends agent at the next slot, assigning it a stable index.
func (r *registry) add(id AgentId, agent Agent) {
	idx := len(r.slots)
	r.slots = append(r.slots, slot{id: id, agent: agent})
	r.index[id] = idx
}

// checkOut detaches the agent at id from the registry, returning it and
// its original index so checkIn can restore it to the same slot. The
// second return value is false if id is not registered.
func (r *registry) checkOut(id AgentId) (Agent, int, bool) {
	idx, ok := r.index[id]
	if !ok {
		return nil, 0, false
	}
	agent := r.slots[idx].agent
	r.slots[idx].agent = nil
	return agent, idx, true
}

// checkIn reattaches agent at idx, the index returned by a prior
// checkOut.
func (r *registry) checkIn(idx int, agent Agent) {
	r.slots[idx].agent = agent
}

// forEachInOrder calls fn for every agent currently parked in the
// registry, in registration order. Agents that are checked out (agent ==
// nil) are skipped — this only matters if forEachInOrder were ever called
// while a callback is in flight, which the kernel does not do.
func (r *registry) forEachInOrder(fn func(Agent)) {
	for _, s := range r.slots {
		if s.agent != nil {
			fn(s.agent)
		}
	}
}

// len returns the number of registered slots (checked out or parked).
func (r *registry) len() int { return len(r.slots) }

// ids returns every registered agent's id, in registration order,
// regardless of whether that agent is currently checked out. Broadcast
// uses this to address every recipient without needing to hold the
// sender's own agent.
func (r *registry) ids() []AgentId {
	ids := make([]AgentId, len(r.slots))
	for i, s := range r.slots {
		ids[i] = s.id
	}
	return ids
}
