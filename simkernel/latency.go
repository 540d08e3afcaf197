package simkernel

import "math/rand/v2"

// LatencyModel maps sender/receiver identities to delivery delay. Both
// methods must be total and side-effect-free: they are called on every
// SimulatorApi.Send and must never fail.
type LatencyModel interface {
	// DelayNs returns the network delay, in nanoseconds, for a message
	// travelling from `from` to `to`.
	DelayNs(from, to AgentId) uint64
	// ComputeNs returns the compute delay, in nanoseconds, an agent takes
	// to process a message once it arrives.
	ComputeNs(to AgentId) uint64
}

// FixedLatency is the default LatencyModel: a constant network delay plus
// a constant compute delay, independent of the agents involved.
type FixedLatency struct {
	NetworkDelayNs uint64
	ComputeDelayNs uint64
}

// NewFixedLatency builds a FixedLatency model.
func NewFixedLatency(networkDelayNs, computeDelayNs uint64) FixedLatency {
	return FixedLatency{NetworkDelayNs: networkDelayNs, ComputeDelayNs: computeDelayNs}
}

func (f FixedLatency) DelayNs(_, _ AgentId) uint64 { return f.NetworkDelayNs }
func (f FixedLatency) ComputeNs(_ AgentId) uint64  { return f.ComputeDelayNs }

// JitteredLatency decorates another LatencyModel by adding bounded
// pseudo-random jitter to its network delay. The PRNG is seeded explicitly
// (never from wall-clock or process entropy) so that two runs built with
// the same seed produce the same delay sequence, preserving the kernel's
// determinism guarantee.
type JitteredLatency struct {
	base     LatencyModel
	jitterNs uint64
	rng      *rand.Rand
}

// NewJitteredLatency wraps base, adding a uniform [0, jitterNs) delay on
// top of base.DelayNs, drawn from a PRNG seeded with seed.
func NewJitteredLatency(base LatencyModel, jitterNs uint64, seed uint64) *JitteredLatency {
	return &JitteredLatency{
		base:     base,
		jitterNs: jitterNs,
		rng:      rand.New(rand.NewPCG(seed, seed)),
	}
}

func (j *JitteredLatency) DelayNs(from, to AgentId) uint64 {
	delay := j.base.DelayNs(from, to)
	if j.jitterNs == 0 {
		return delay
	}
	return delay + j.rng.Uint64N(j.jitterNs)
}

func (j *JitteredLatency) ComputeNs(to AgentId) uint64 {
	return j.base.ComputeNs(to)
}

// saturatingAdd sums ns values, clamping to math.MaxUint64 instead of
// wrapping on overflow. Delivery timestamps are always computed this way
// so that a scheduled-for-the-far-future entry never wraps around to the
// past.
func saturatingAdd(values ...uint64) uint64 {
	const maxUint64 = ^uint64(0)
	var total uint64
	for _, v := range values {
		if total > maxUint64-v {
			return maxUint64
		}
		total += v
	}
	return total
}
