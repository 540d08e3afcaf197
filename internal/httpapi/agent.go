package httpapi

import (
	"log/slog"

	"github.com/eugenway/perpsim/simkernel"
)

// CommandAgent bridges the HTTP and WebSocket command surfaces into the
// kernel's single-threaded event loop. Neither surface touches
// simulation state directly; both push a simkernel.ApiCommand onto
// Commands and wait on its reply. CommandAgent drains Commands on every
// OnWakeup, so the kernel goroutine is the only writer of simulation
// state either surface can observe.
type CommandAgent struct {
	simkernel.BaseAgent
	ExchangeID     simkernel.AgentId
	WakeIntervalNs uint64

	Commands chan simkernel.ApiCommand

	logger *slog.Logger
}

// NewCommandAgent constructs a CommandAgent with a Commands channel of
// simkernel.CommandBufferSize capacity. logger may be nil.
func NewCommandAgent(id simkernel.AgentId, exchangeID simkernel.AgentId, wakeIntervalNs uint64, logger *slog.Logger) *CommandAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandAgent{
		BaseAgent:      simkernel.BaseAgent{Id: id},
		ExchangeID:     exchangeID,
		WakeIntervalNs: wakeIntervalNs,
		Commands:       make(chan simkernel.ApiCommand, simkernel.CommandBufferSize),
		logger:         logger,
	}
}

func (c *CommandAgent) OnStart(api simkernel.SimulatorApi) {
	api.Wakeup(c.ID(), api.NowNs()+c.WakeIntervalNs)
}

func (c *CommandAgent) OnWakeup(api simkernel.SimulatorApi, nowNs uint64) {
	c.drain(api)
	api.Wakeup(c.ID(), nowNs+c.WakeIntervalNs)
}

// drain processes every command currently buffered, without blocking.
// The simulator has no matching engine of its own here, so commands are
// answered synchronously against basic validation and forwarded into the
// kernel as the corresponding order message; a fuller exchange
// implementation would instead wait for an OrderAccepted/OrderRejected
// round trip before responding.
func (c *CommandAgent) drain(api simkernel.SimulatorApi) {
	for {
		select {
		case cmd := <-c.Commands:
			cmd.Respond(c.handle(api, cmd))
		default:
			return
		}
	}
}

func (c *CommandAgent) handle(api simkernel.SimulatorApi, cmd simkernel.ApiCommand) simkernel.ApiResponse {
	if cmd.Symbol == "" {
		return simkernel.ApiResponse{Success: false, Message: "symbol is required"}
	}

	switch cmd.Action {
	case "open":
		if cmd.Side == nil || cmd.Qty == nil {
			return simkernel.ApiResponse{Success: false, Message: "side and qty are required for open"}
		}
		leverage := uint32(1)
		if cmd.Leverage != nil {
			leverage = *cmd.Leverage
		}
		api.Send(c.ID(), c.ExchangeID, simkernel.MarketOrder, simkernel.Payload{
			Kind: simkernel.PayloadMarketOrder,
			MarketOrder: simkernel.MarketOrderPayload{
				Symbol:   cmd.Symbol,
				Side:     *cmd.Side,
				Qty:      *cmd.Qty,
				Leverage: leverage,
			},
		})
		c.logger.Info("order submitted", "symbol", cmd.Symbol, "side", cmd.Side.String())
		return simkernel.ApiResponse{Success: true, Message: "order submitted"}

	case "close":
		if cmd.Side == nil {
			return simkernel.ApiResponse{Success: false, Message: "side is required for close"}
		}
		api.Send(c.ID(), c.ExchangeID, simkernel.CloseOrder, simkernel.Payload{
			Kind:       simkernel.PayloadCloseOrder,
			CloseOrder: simkernel.CloseOrderPayload{Symbol: cmd.Symbol, Side: *cmd.Side},
		})
		return simkernel.ApiResponse{Success: true, Message: "close requested"}

	case "preview":
		return simkernel.ApiResponse{Success: true, Message: "preview accepted", Data: map[string]any{
			"symbol": cmd.Symbol,
		}}

	case "status":
		return simkernel.ApiResponse{Success: true, Message: "ok", Data: map[string]any{
			"now_ns": api.NowNs(),
		}}

	default:
		return simkernel.ApiResponse{Success: false, Message: "unknown action: " + cmd.Action}
	}
}
