// Package simkernel implements the deterministic virtual-time scheduling
// kernel at the core of the simulator: message delivery, timed wakeups,
// the agent/kernel interaction contract, and the pure algorithmic
// primitives (latency, trigger matching) that sit alongside it.
package simkernel

import "strings"

// AgentId is a dense identifier assigned externally before an agent is
// registered with a Kernel. It is globally unique within a single run.
type AgentId uint32

// MessageType discriminates routing policy and listener interest. The set
// is closed: new members require a corresponding case in every exhaustive
// switch over MessageType in this package.
type MessageType int

const (
	Wakeup MessageType = iota
	MarketOrder
	LimitOrder
	CloseOrder
	CancelOrder
	ModifyOrder
	OracleTick
	ExecuteOrder
	OrderAccepted
	OrderRejected
	OrderExecuted
	OrderPending
	OrderCancelled
	OrderTriggered
	PositionLiquidated
	MarketState
	LiquidationScan
	PendingOrdersList
	KeeperReward
	OrderAlreadyExecuted
	GetPendingOrders
)

var messageTypeNames = map[MessageType]string{
	Wakeup:               "Wakeup",
	MarketOrder:          "MarketOrder",
	LimitOrder:           "LimitOrder",
	CloseOrder:           "CloseOrder",
	CancelOrder:          "CancelOrder",
	ModifyOrder:          "ModifyOrder",
	OracleTick:           "OracleTick",
	ExecuteOrder:         "ExecuteOrder",
	OrderAccepted:        "OrderAccepted",
	OrderRejected:        "OrderRejected",
	OrderExecuted:        "OrderExecuted",
	OrderPending:         "OrderPending",
	OrderCancelled:       "OrderCancelled",
	OrderTriggered:       "OrderTriggered",
	PositionLiquidated:   "PositionLiquidated",
	MarketState:          "MarketState",
	LiquidationScan:      "LiquidationScan",
	PendingOrdersList:    "PendingOrdersList",
	KeeperReward:         "KeeperReward",
	OrderAlreadyExecuted: "OrderAlreadyExecuted",
	GetPendingOrders:     "GetPendingOrders",
}

// String implements fmt.Stringer for diagnostic logging.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Side is the direction of an order or position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// MarshalJSON renders Side in lowercase, matching the wire format agents
// and remote subscribers expect.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts buy/sell as well as the long/short aliases used by
// the HTTP command surface.
func (s *Side) UnmarshalJSON(data []byte) error {
	str := strings.ToLower(strings.Trim(string(data), `"`))
	switch str {
	case "buy", "long":
		*s = Buy
	case "sell", "short":
		*s = Sell
	default:
		*s = Buy
	}
	return nil
}

// ExecutionType classifies a standing conditional order for the trigger
// predicate in trigger.go.
type ExecutionType int

const (
	Limit ExecutionType = iota
	StopLoss
	TakeProfit
	Market
)

// OrderType classifies whether an order increases or decreases exposure.
type OrderType int

const (
	Increase OrderType = iota
	Decrease
)

// OrderExecutionType classifies how an order was ultimately executed, used
// on executed-order events (distinct from OrderType, which only concerns
// the trigger predicate).
type OrderExecutionType int

const (
	ExecIncrease OrderExecutionType = iota
	ExecDecrease
	ExecLiquidation
)

// Price is a quoted bid/ask range, expressed in micro-USD.
type Price struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// PayloadKind discriminates the variant carried by a Message's Payload.
// The payload variant and the owning Message's MessageType are expected to
// be consistent; an inconsistent pair is malformed and MUST be tolerated
// (dropped) by the recipient rather than crash the kernel.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadText
	PayloadLimitOrder
	PayloadMarketOrder
	PayloadCloseOrder
	PayloadCancelOrder
	PayloadModifyOrder
	PayloadOracleTick
	PayloadOrderExecuted
	PayloadPositionLiquidated
	PayloadMarketStateData
	PayloadLiquidationTask
	PayloadPendingOrdersList
	PayloadExecuteOrder
	PayloadKeeperReward
)

// LimitOrderPayload carries a resting limit order.
type LimitOrderPayload struct {
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Qty           float64 `json:"qty"`
	Price         uint64  `json:"price"`
	ExecutionType ExecutionType
	OrderType     OrderType
	TriggerPrice  uint64
	// AcceptablePrice, when non-zero, gates execution via the slippage
	// check in trigger.go. A zero value means "no slippage constraint".
	AcceptablePrice uint64
}

// MarketOrderPayload carries an immediate-execution order.
type MarketOrderPayload struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Qty      float64 `json:"qty"`
	Leverage uint32  `json:"leverage"`
}

// CloseOrderPayload requests closing (decreasing) an existing position.
type CloseOrderPayload struct {
	Symbol string `json:"symbol"`
	Side   Side   `json:"side"`
}

// CancelOrderPayload requests cancellation of a previously submitted
// pending order.
type CancelOrderPayload struct {
	OrderID uint64 `json:"order_id"`
}

// ModifyOrderPayload requests changing the trigger price of a pending
// order.
type ModifyOrderPayload struct {
	OrderID         uint64 `json:"order_id"`
	NewTriggerPrice uint64 `json:"new_trigger_price"`
}

// OracleTickPayload is a price-feed observation forwarded into the
// simulation, including the signature bytes needed for on-chain
// verification by downstream consumers (out of scope for the kernel).
type OracleTickPayload struct {
	Symbol      string  `json:"symbol"`
	Price       Price   `json:"price"`
	PublishTime uint64  `json:"publish_time"`
	Confidence  *uint64 `json:"confidence,omitempty"`
	Ema         *uint64 `json:"ema,omitempty"`
	Provider    string  `json:"provider"`
	Signature   []byte  `json:"signature,omitempty"`
}

// OrderExecutedPayload notifies an agent that one of its orders executed.
type OrderExecutedPayload struct {
	Symbol           string             `json:"symbol"`
	Side             Side               `json:"side"`
	OrderType        OrderExecutionType `json:"order_type"`
	CollateralDelta  int64              `json:"collateral_delta"`
	Pnl              int64              `json:"pnl"`
	SizeUsd          int64              `json:"size_usd"`
	ExecutionPriceUs uint64             `json:"execution_price"`
}

// PositionLiquidatedPayload notifies an agent that its position was
// liquidated.
type PositionLiquidatedPayload struct {
	Symbol          string `json:"symbol"`
	Side            Side   `json:"side"`
	SizeUsd         int64  `json:"size_usd"`
	Pnl             int64  `json:"pnl"`
	CollateralLost  int64  `json:"collateral_lost"`
	LiquidationPrce uint64 `json:"liquidation_price"`
}

// MarketStatePayload broadcasts open-interest and liquidity data.
type MarketStatePayload struct {
	Symbol       string `json:"symbol"`
	OiLongUsd    int64  `json:"oi_long_usd"`
	OiShortUsd   int64  `json:"oi_short_usd"`
	LiquidityUsd int64  `json:"liquidity_usd"`
}

// LiquidationTaskPayload asks a keeper-style agent to scan a symbol for
// liquidatable positions.
type LiquidationTaskPayload struct {
	Symbol        string `json:"symbol"`
	MaxPositions  uint32 `json:"max_positions"`
}

// PendingOrdersListPayload carries a snapshot of pending orders, e.g. in
// response to GetPendingOrders.
type PendingOrdersListPayload struct {
	Symbol string             `json:"symbol"`
	Orders []PendingOrderInfo `json:"orders"`
}

// ExecuteOrderPayload asks the exchange to execute a specific pending
// order immediately, bypassing the trigger scan — sent by a keeper that
// has already determined the order's condition is met.
type ExecuteOrderPayload struct {
	OrderID uint64 `json:"order_id"`
}

// KeeperRewardPayload pays a keeper for a successful ExecuteOrder.
type KeeperRewardPayload struct {
	OrderID        uint64 `json:"order_id"`
	RewardUsdMicro uint64 `json:"reward_usd_micro"`
}

// PendingOrderInfo is a read-only view of a standing conditional order,
// sufficient for the trigger predicate and for listing.
type PendingOrderInfo struct {
	OrderID         uint64        `json:"order_id"`
	Owner           AgentId       `json:"owner"`
	Symbol          string        `json:"symbol"`
	Side            Side          `json:"side"`
	ExecutionType   ExecutionType `json:"execution_type"`
	OrderType       OrderType     `json:"order_type"`
	TriggerPrice    uint64        `json:"trigger_price"`
	AcceptablePrice uint64        `json:"acceptable_price"`
}

// Payload is a tagged variant carrying a Message's domain body. Only the
// field matching Kind is meaningful; this is the Go approximation of a
// closed sum type and keeps dispatch over payloads exhaustive-checkable,
// unlike a heterogeneous `any` bag.
type Payload struct {
	Kind               PayloadKind
	Text               string
	LimitOrder         LimitOrderPayload
	MarketOrder        MarketOrderPayload
	CloseOrder         CloseOrderPayload
	CancelOrder        CancelOrderPayload
	ModifyOrder        ModifyOrderPayload
	OracleTick         OracleTickPayload
	OrderExecuted      OrderExecutedPayload
	PositionLiquidated PositionLiquidatedPayload
	MarketStateData    MarketStatePayload
	LiquidationTask    LiquidationTaskPayload
	PendingOrdersList  PendingOrdersListPayload
	ExecuteOrder       ExecuteOrderPayload
	KeeperReward       KeeperRewardPayload
}

// EmptyPayload is the zero payload used for wakeups and bare messages.
func EmptyPayload() Payload { return Payload{Kind: PayloadEmpty} }

// TextPayload wraps a plain string, mainly useful for tests and ad-hoc
// diagnostics.
func TextPayload(s string) Payload { return Payload{Kind: PayloadText, Text: s} }

// Message is the internal routed envelope that flows through the
// priority queue. For wakeups, From == To.
type Message struct {
	From    AgentId
	To      AgentId
	Type    MessageType
	At      uint64
	Payload Payload
}
