// Package agents provides sample Agent implementations that exercise the
// kernel's full contract: a price-taking exchange, a tick-publishing
// oracle, and a trigger-scanning keeper.
package agents

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/eugenway/perpsim/simkernel"
)

// ExchangeAgent tracks the latest mid-price per symbol from OracleTick
// messages and logs every order-family message it receives. It does not
// implement a matching engine; it is the minimal recipient a market-data
// and order-flow simulation needs to exercise the kernel end to end.
type ExchangeAgent struct {
	simkernel.BaseAgent
	Name   string
	logger *slog.Logger

	lastPrice map[string]uint64
}

// NewExchangeAgent constructs an ExchangeAgent. logger may be nil.
func NewExchangeAgent(id simkernel.AgentId, name string, logger *slog.Logger) *ExchangeAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExchangeAgent{
		BaseAgent: simkernel.BaseAgent{Id: id},
		Name:      name,
		logger:    logger,
		lastPrice: make(map[string]uint64),
	}
}

// LastPrice returns the most recently observed mid-price for symbol, or
// false if no tick for it has arrived yet.
func (e *ExchangeAgent) LastPrice(symbol string) (uint64, bool) {
	p, ok := e.lastPrice[symbol]
	return p, ok
}

func (e *ExchangeAgent) OnStart(simkernel.SimulatorApi) {
	e.logger.Info("exchange starting", "agent", e.Name)
}

func (e *ExchangeAgent) OnStop(simkernel.SimulatorApi) {
	e.logger.Info("exchange stopping", "agent", e.Name)
}

func (e *ExchangeAgent) OnMessage(api simkernel.SimulatorApi, msg simkernel.Message) {
	switch msg.Type {
	case simkernel.OracleTick:
		if msg.Payload.Kind != simkernel.PayloadOracleTick {
			e.logger.Warn("malformed OracleTick payload", "agent", e.Name, "from", msg.From)
			return
		}
		p := msg.Payload.OracleTick
		mid := (p.Price.Min + p.Price.Max) / 2
		e.lastPrice[p.Symbol] = mid
		e.logger.Debug("oracle tick", "agent", e.Name, "symbol", p.Symbol, "mid", mid, "from", msg.From)

	case simkernel.MarketOrder, simkernel.LimitOrder:
		last, _ := e.LastPrice(orderSymbol(msg))
		e.logger.Info("order received", "agent", e.Name, "from", msg.From, "type", msg.Type,
			"last_price_usd_micro", humanize.Comma(int64(last)))

	case simkernel.LiquidationScan:
		e.logger.Info("liquidation scan received", "agent", e.Name, "from", msg.From)

	default:
		e.logger.Debug("message received", "agent", e.Name, "from", msg.From, "type", msg.Type)
	}
}

// orderSymbol extracts the symbol from whichever order payload variant msg
// carries, returning "" if neither matches.
func orderSymbol(msg simkernel.Message) string {
	switch msg.Payload.Kind {
	case simkernel.PayloadMarketOrder:
		return msg.Payload.MarketOrder.Symbol
	case simkernel.PayloadLimitOrder:
		return msg.Payload.LimitOrder.Symbol
	default:
		return ""
	}
}
