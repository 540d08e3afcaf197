package simkernel

import (
	"fmt"
	"strings"
)

// EventKind discriminates the variant carried by an Event. Distinct from
// PayloadKind: events describe observations published to the EventBus,
// never routed back to agents, and are always serializable for wire
// transport to remote subscribers.
type EventKind int

const (
	EventOrderLog EventKind = iota
	EventOrderExecuted
	EventOracleTick
	EventPositionSnapshot
	EventMarketSnapshot
	EventPositionLiquidated
)

var eventKindNames = map[EventKind]string{
	EventOrderLog:           "OrderLog",
	EventOrderExecuted:      "OrderExecuted",
	EventOracleTick:         "OracleTick",
	EventPositionSnapshot:   "PositionSnapshot",
	EventMarketSnapshot:     "MarketSnapshot",
	EventPositionLiquidated: "PositionLiquidated",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// MarshalJSON renders EventKind as its wire name, so the tagged union
// remote subscribers see is self-describing.
func (k EventKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON accepts any of the wire names MarshalJSON produces,
// mirroring Side.UnmarshalJSON's decode side. An unrecognized name is an
// error rather than a silent default: unlike Side, EventKind has no
// natural fallback variant.
func (k *EventKind) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	for kind, name := range eventKindNames {
		if name == str {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("simkernel: unknown EventKind %q", str)
}

// Event is an immutable, externally observable record published to the
// EventBus. Only the field matching Kind is populated.
type Event struct {
	Kind      EventKind `json:"event_type"`
	Timestamp uint64    `json:"ts"`

	// EventOrderLog
	From    AgentId     `json:"from,omitempty"`
	To      AgentId     `json:"to,omitempty"`
	MsgType MessageType `json:"msg_type,omitempty"`
	Symbol  string      `json:"symbol,omitempty"`
	Side    *Side       `json:"side,omitempty"`
	Price   *uint64     `json:"price,omitempty"`
	Qty     *float64    `json:"qty,omitempty"`

	// EventOrderExecuted / EventPositionLiquidated
	Account          AgentId            `json:"account,omitempty"`
	SizeUsd          int64              `json:"size_usd,omitempty"`
	Collateral       int64              `json:"collateral,omitempty"`
	ExecutionPrice   uint64             `json:"execution_price,omitempty"`
	Leverage         uint32             `json:"leverage,omitempty"`
	OrderType        OrderExecutionType `json:"order_type,omitempty"`
	Pnl              int64              `json:"pnl,omitempty"`
	CollateralLost   int64              `json:"collateral_lost,omitempty"`
	LiquidationPrice uint64             `json:"liquidation_price,omitempty"`

	// EventOracleTick
	PriceMin uint64 `json:"price_min,omitempty"`
	PriceMax uint64 `json:"price_max,omitempty"`

	// EventMarketSnapshot
	OiLongUsd    int64 `json:"oi_long_usd,omitempty"`
	OiShortUsd   int64 `json:"oi_short_usd,omitempty"`
	LiquidityUsd int64 `json:"liquidity_usd,omitempty"`
}

// EventListener receives Events published by an EventBus. Implementations
// must not block or panic; a panic is caught and logged by the bus, but
// the offending listener's remaining fan-out for that event is skipped.
type EventListener interface {
	OnEvent(e Event)
}
