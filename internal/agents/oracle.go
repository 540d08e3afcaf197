package agents

import (
	"log/slog"
	"math/rand/v2"

	"github.com/eugenway/perpsim/simkernel"
)

// PriceProvider produces a quoted price for a symbol at a point in
// virtual time. Implementations must be deterministic for a given seed so
// that two runs built identically produce identical prices.
type PriceProvider interface {
	Quote(symbol string, nowNs uint64) simkernel.Price
}

// RandomWalkProvider is a deterministic synthetic PriceProvider: each
// symbol's mid-price takes a seeded random walk, bounded above zero, with
// a fixed confidence band used to derive Price.Min/Max.
type RandomWalkProvider struct {
	rng          *rand.Rand
	stepUsdMicro uint64
	confidence   uint64
	mid          map[string]uint64
}

// NewRandomWalkProvider seeds a RandomWalkProvider. startPrices gives the
// initial mid-price per symbol, in micro-USD; stepUsdMicro bounds the
// per-tick random walk step; confidence is the fixed +/- band used to
// compute each quote's Min/Max.
func NewRandomWalkProvider(seed uint64, startPrices map[string]uint64, stepUsdMicro, confidence uint64) *RandomWalkProvider {
	mid := make(map[string]uint64, len(startPrices))
	for k, v := range startPrices {
		mid[k] = v
	}
	return &RandomWalkProvider{
		rng:          rand.New(rand.NewPCG(seed, seed)),
		stepUsdMicro: stepUsdMicro,
		confidence:   confidence,
		mid:          mid,
	}
}

func (p *RandomWalkProvider) Quote(symbol string, _ uint64) simkernel.Price {
	current, ok := p.mid[symbol]
	if !ok {
		current = 1_000_000 // $1.00 default for an unseeded symbol
	}

	if p.stepUsdMicro > 0 {
		delta := p.rng.Int64N(int64(2*p.stepUsdMicro+1)) - int64(p.stepUsdMicro)
		if delta < 0 && uint64(-delta) > current {
			current = 0
		} else {
			current = uint64(int64(current) + delta)
		}
	}
	p.mid[symbol] = current

	min := current
	if p.confidence < current {
		min = current - p.confidence
	} else {
		min = 0
	}
	return simkernel.Price{Min: min, Max: current + p.confidence}
}

// OracleAgent periodically quotes every tracked symbol and forwards the
// result as an OracleTick to the exchange it feeds.
type OracleAgent struct {
	simkernel.BaseAgent
	Name           string
	Symbols        []string
	ExchangeID     simkernel.AgentId
	WakeIntervalNs uint64
	Provider       PriceProvider

	logger      *slog.Logger
	blockNumber uint64
}

// NewOracleAgent constructs an OracleAgent. logger may be nil.
func NewOracleAgent(id simkernel.AgentId, name string, symbols []string, exchangeID simkernel.AgentId, wakeIntervalNs uint64, provider PriceProvider, logger *slog.Logger) *OracleAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleAgent{
		BaseAgent:      simkernel.BaseAgent{Id: id},
		Name:           name,
		Symbols:        symbols,
		ExchangeID:     exchangeID,
		WakeIntervalNs: wakeIntervalNs,
		Provider:       provider,
		logger:         logger,
	}
}

func (o *OracleAgent) OnStart(api simkernel.SimulatorApi) {
	o.logger.Info("oracle starting", "agent", o.Name, "symbols", o.Symbols, "wake_interval_ns", o.WakeIntervalNs)
	api.Wakeup(o.ID(), api.NowNs()+o.WakeIntervalNs)
}

func (o *OracleAgent) OnWakeup(api simkernel.SimulatorApi, nowNs uint64) {
	o.blockNumber++
	for _, symbol := range o.Symbols {
		price := o.Provider.Quote(symbol, nowNs)
		payload := simkernel.Payload{
			Kind: simkernel.PayloadOracleTick,
			OracleTick: simkernel.OracleTickPayload{
				Symbol:      symbol,
				Price:       price,
				PublishTime: nowNs,
				Provider:    o.Name,
			},
		}
		api.Send(o.ID(), o.ExchangeID, simkernel.OracleTick, payload)
	}
	o.logger.Debug("oracle tick published", "agent", o.Name, "block", o.blockNumber, "now_ns", nowNs)
	api.Wakeup(o.ID(), nowNs+o.WakeIntervalNs)
}

func (o *OracleAgent) OnStop(simkernel.SimulatorApi) {
	o.logger.Info("oracle stopping", "agent", o.Name, "blocks", o.blockNumber)
}
