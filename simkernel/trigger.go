package simkernel

// IsTriggered decides whether a standing conditional order should fire
// against the current quoted range. It is total and side-effect-free: every
// (ExecutionType, OrderType, Side) combination maps to a fixed boolean, per
// the firing table below. Market orders are never pending, so they never
// trigger.
//
//	execution_type  order_type  side  fires when
//	Limit           Increase    Buy   max <= trigger
//	Limit           Increase    Sell  min >= trigger
//	Limit           Decrease    Buy   min >= trigger
//	Limit           Decrease    Sell  max <= trigger
//	StopLoss        Decrease    Buy   min <= trigger
//	StopLoss        Decrease    Sell  max >= trigger
//	TakeProfit      Decrease    Buy   min >= trigger
//	TakeProfit      Decrease    Sell  max <= trigger
func IsTriggered(execType ExecutionType, orderType OrderType, side Side, trigger uint64, price Price) bool {
	switch {
	case execType == Limit && orderType == Increase && side == Buy:
		return price.Max <= trigger
	case execType == Limit && orderType == Increase && side == Sell:
		return price.Min >= trigger
	case execType == Limit && orderType == Decrease && side == Buy:
		return price.Min >= trigger
	case execType == Limit && orderType == Decrease && side == Sell:
		return price.Max <= trigger

	case execType == StopLoss && orderType == Decrease && side == Buy:
		return price.Min <= trigger
	case execType == StopLoss && orderType == Decrease && side == Sell:
		return price.Max >= trigger

	case execType == TakeProfit && orderType == Decrease && side == Buy:
		return price.Min >= trigger
	case execType == TakeProfit && orderType == Decrease && side == Sell:
		return price.Max <= trigger

	default:
		// Market orders, and every other combination, never trigger.
		return false
	}
}

// IsOrderTriggered is a convenience wrapper over IsTriggered for a
// PendingOrderInfo, matching the shape a keeper-style agent scans.
func IsOrderTriggered(order PendingOrderInfo, price Price) bool {
	return IsTriggered(order.ExecutionType, order.OrderType, order.Side, order.TriggerPrice, price)
}

// PassesSlippageCheck validates an execution price against an optional
// acceptable-price bound. A zero acceptablePrice means no constraint was
// set and the check always passes.
func PassesSlippageCheck(orderType OrderType, side Side, acceptablePrice, executionPrice uint64) bool {
	if acceptablePrice == 0 {
		return true
	}
	switch {
	case orderType == Increase && side == Buy:
		return executionPrice <= acceptablePrice
	case orderType == Decrease && side == Sell:
		return executionPrice <= acceptablePrice
	case orderType == Increase && side == Sell:
		return executionPrice >= acceptablePrice
	case orderType == Decrease && side == Buy:
		return executionPrice >= acceptablePrice
	default:
		return true
	}
}
