package agents

import (
	"log/slog"

	"github.com/eugenway/perpsim/simkernel"
)

// KeeperAgent periodically polls the exchange for pending conditional
// orders, tracks the latest quoted price per symbol from OracleTick
// broadcasts, and sends ExecuteOrder whenever IsOrderTriggered fires —
// the keeper-bot role that turns a passive trigger predicate into actual
// order flow.
type KeeperAgent struct {
	simkernel.BaseAgent
	Name           string
	ExchangeID     simkernel.AgentId
	WakeIntervalNs uint64

	logger *slog.Logger

	prices        map[string]simkernel.Price
	pendingOrders []simkernel.PendingOrderInfo

	ordersExecuted int
	ordersMissed   int
	totalRewards   uint64
}

// NewKeeperAgent constructs a KeeperAgent. logger may be nil.
func NewKeeperAgent(id simkernel.AgentId, name string, exchangeID simkernel.AgentId, wakeIntervalNs uint64, logger *slog.Logger) *KeeperAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeeperAgent{
		BaseAgent:      simkernel.BaseAgent{Id: id},
		Name:           name,
		ExchangeID:     exchangeID,
		WakeIntervalNs: wakeIntervalNs,
		logger:         logger,
		prices:         make(map[string]simkernel.Price),
	}
}

// Stats returns (ordersExecuted, ordersMissed, totalRewards) observed so
// far, for tests and post-run reporting.
func (k *KeeperAgent) Stats() (executed, missed int, rewards uint64) {
	return k.ordersExecuted, k.ordersMissed, k.totalRewards
}

func (k *KeeperAgent) OnStart(api simkernel.SimulatorApi) {
	k.logger.Info("keeper starting", "agent", k.Name, "wake_interval_ns", k.WakeIntervalNs)
	api.Wakeup(k.ID(), api.NowNs()+k.WakeIntervalNs)
}

func (k *KeeperAgent) OnWakeup(api simkernel.SimulatorApi, nowNs uint64) {
	api.Send(k.ID(), k.ExchangeID, simkernel.GetPendingOrders, simkernel.EmptyPayload())
	api.Wakeup(k.ID(), nowNs+k.WakeIntervalNs)
}

func (k *KeeperAgent) OnMessage(api simkernel.SimulatorApi, msg simkernel.Message) {
	switch msg.Type {
	case simkernel.OracleTick:
		if msg.Payload.Kind != simkernel.PayloadOracleTick {
			return
		}
		p := msg.Payload.OracleTick
		k.prices[p.Symbol] = p.Price
		k.checkAndExecuteTriggers(api)

	case simkernel.PendingOrdersList:
		if msg.Payload.Kind != simkernel.PayloadPendingOrdersList {
			return
		}
		k.pendingOrders = msg.Payload.PendingOrdersList.Orders
		k.checkAndExecuteTriggers(api)

	case simkernel.KeeperReward:
		if msg.Payload.Kind != simkernel.PayloadKeeperReward {
			return
		}
		r := msg.Payload.KeeperReward
		k.ordersExecuted++
		k.totalRewards += r.RewardUsdMicro
		k.logger.Info("keeper reward", "agent", k.Name, "order_id", r.OrderID, "reward_usd_micro", r.RewardUsdMicro)

	case simkernel.OrderAlreadyExecuted:
		k.ordersMissed++
	}
}

func (k *KeeperAgent) checkAndExecuteTriggers(api simkernel.SimulatorApi) {
	for _, order := range k.pendingOrders {
		price, ok := k.prices[order.Symbol]
		if !ok {
			continue
		}
		if simkernel.IsOrderTriggered(order, price) {
			k.logger.Debug("triggering order", "agent", k.Name, "order_id", order.OrderID, "symbol", order.Symbol)
			api.Send(k.ID(), k.ExchangeID, simkernel.ExecuteOrder, simkernel.Payload{
				Kind:         simkernel.PayloadExecuteOrder,
				ExecuteOrder: simkernel.ExecuteOrderPayload{OrderID: order.OrderID},
			})
		}
	}
}

func (k *KeeperAgent) OnStop(simkernel.SimulatorApi) {
	k.logger.Info("keeper stopping", "agent", k.Name, "executed", k.ordersExecuted, "missed", k.ordersMissed, "total_rewards_usd_micro", k.totalRewards)
}
