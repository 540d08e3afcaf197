package agents

import (
	"context"
	"testing"

	"github.com/eugenway/perpsim/simkernel"
)

func TestOracleAgentPublishesTicksToExchange(t *testing.T) {
	k := simkernel.NewKernelAt(0, simkernel.NewFixedLatency(0, 0), 10, nil)

	exchangeID := simkernel.AgentId(1)
	exchange := NewExchangeAgent(exchangeID, "ex", nil)
	k.AddAgent(exchange)

	provider := NewRandomWalkProvider(1, map[string]uint64{"BTC": 50_000_000_000}, 0, 1_000_000)
	oracle := NewOracleAgent(2, "oracle", []string{"BTC"}, exchangeID, 30, provider, nil)
	k.AddAgent(oracle)

	k.Run(context.Background(), 10)

	price, ok := exchange.LastPrice("BTC")
	if !ok {
		t.Fatal("exchange never observed a BTC price")
	}
	if price != 50_000_000_000 {
		t.Errorf("LastPrice(BTC) = %d, want 50_000_000_000 (zero step => constant walk)", price)
	}
}

func TestKeeperAgentTriggerScanLeavesStatsUntilConfirmed(t *testing.T) {
	k := simkernel.NewKernelAt(0, simkernel.NewFixedLatency(0, 0), 10, nil)

	exchangeID := simkernel.AgentId(1)
	keeper := NewKeeperAgent(2, "keeper", exchangeID, 50, nil)
	k.AddAgent(keeper)

	// Feed the keeper a price tick and a pending order list directly,
	// bypassing a full exchange implementation, to isolate the
	// trigger-scan behavior.
	keeper.OnMessage(k, simkernel.Message{
		From: exchangeID,
		To:   2,
		Type: simkernel.OracleTick,
		Payload: simkernel.Payload{
			Kind: simkernel.PayloadOracleTick,
			OracleTick: simkernel.OracleTickPayload{
				Symbol: "BTC",
				Price:  simkernel.Price{Min: 90, Max: 95},
			},
		},
	})

	order := simkernel.PendingOrderInfo{
		OrderID:       7,
		Symbol:        "BTC",
		Side:          simkernel.Buy,
		ExecutionType: simkernel.Limit,
		OrderType:     simkernel.Increase,
		TriggerPrice:  100,
	}
	keeper.OnMessage(k, simkernel.Message{
		From: exchangeID,
		To:   2,
		Type: simkernel.PendingOrdersList,
		Payload: simkernel.Payload{
			Kind:              simkernel.PayloadPendingOrdersList,
			PendingOrdersList: simkernel.PendingOrdersListPayload{Orders: []simkernel.PendingOrderInfo{order}},
		},
	})

	k.Run(context.Background(), 5)

	executed, missed, _ := keeper.Stats()
	if executed != 0 || missed != 0 {
		t.Fatalf("keeper stats before any reward/miss message = (%d, %d), want (0, 0)", executed, missed)
	}
}

func TestKeeperAgentTracksRewardsAndMisses(t *testing.T) {
	keeper := NewKeeperAgent(2, "keeper", 1, 50, nil)
	k := simkernel.NewKernelAt(0, simkernel.NewFixedLatency(0, 0), 10, nil)

	keeper.OnMessage(k, simkernel.Message{
		Type: simkernel.KeeperReward,
		Payload: simkernel.Payload{
			Kind:         simkernel.PayloadKeeperReward,
			KeeperReward: simkernel.KeeperRewardPayload{OrderID: 1, RewardUsdMicro: 500},
		},
	})
	keeper.OnMessage(k, simkernel.Message{Type: simkernel.OrderAlreadyExecuted})

	executed, missed, rewards := keeper.Stats()
	if executed != 1 || missed != 1 || rewards != 500 {
		t.Errorf("Stats() = (%d, %d, %d), want (1, 1, 500)", executed, missed, rewards)
	}
}
