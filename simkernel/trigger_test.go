package simkernel

import "testing"

func TestIsTriggeredLimitOrders(t *testing.T) {
	cases := []struct {
		name      string
		orderType OrderType
		side      Side
		trigger   uint64
		price     Price
		want      bool
	}{
		{"increase buy fires at or below trigger", Increase, Buy, 100, Price{Min: 90, Max: 100}, true},
		{"increase buy does not fire above trigger", Increase, Buy, 100, Price{Min: 101, Max: 105}, false},
		{"increase sell fires at or above trigger", Increase, Sell, 100, Price{Min: 100, Max: 110}, true},
		{"increase sell does not fire below trigger", Increase, Sell, 100, Price{Min: 95, Max: 99}, false},
		{"decrease buy fires at or above trigger", Decrease, Buy, 100, Price{Min: 100, Max: 110}, true},
		{"decrease sell fires at or below trigger", Decrease, Sell, 100, Price{Min: 90, Max: 100}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsTriggered(Limit, c.orderType, c.side, c.trigger, c.price); got != c.want {
				t.Errorf("IsTriggered(Limit, %v, %v, %d, %v) = %v, want %v", c.orderType, c.side, c.trigger, c.price, got, c.want)
			}
		})
	}
}

func TestIsTriggeredStopLoss(t *testing.T) {
	if !IsTriggered(StopLoss, Decrease, Buy, 100, Price{Min: 80, Max: 95}) {
		t.Errorf("StopLoss/Decrease/Buy should fire when min <= trigger")
	}
	if IsTriggered(StopLoss, Decrease, Buy, 100, Price{Min: 101, Max: 110}) {
		t.Errorf("StopLoss/Decrease/Buy should not fire when min > trigger")
	}
	if !IsTriggered(StopLoss, Decrease, Sell, 100, Price{Min: 100, Max: 110}) {
		t.Errorf("StopLoss/Decrease/Sell should fire when max >= trigger")
	}
}

func TestIsTriggeredTakeProfit(t *testing.T) {
	if !IsTriggered(TakeProfit, Decrease, Buy, 100, Price{Min: 100, Max: 110}) {
		t.Errorf("TakeProfit/Decrease/Buy should fire when min >= trigger")
	}
	if !IsTriggered(TakeProfit, Decrease, Sell, 100, Price{Min: 90, Max: 100}) {
		t.Errorf("TakeProfit/Decrease/Sell should fire when max <= trigger")
	}
}

func TestIsTriggeredMarketOrdersNeverFire(t *testing.T) {
	if IsTriggered(Market, Increase, Buy, 100, Price{Min: 0, Max: 1000}) {
		t.Errorf("Market orders must never trigger")
	}
}

func TestIsTriggeredUnlistedCombinationsNeverFire(t *testing.T) {
	if IsTriggered(StopLoss, Increase, Buy, 100, Price{Min: 50, Max: 60}) {
		t.Errorf("combination outside the firing table must default to false")
	}
}

func TestIsOrderTriggeredDelegatesFields(t *testing.T) {
	order := PendingOrderInfo{
		ExecutionType: Limit,
		OrderType:     Increase,
		Side:          Buy,
		TriggerPrice:  100,
	}
	if !IsOrderTriggered(order, Price{Min: 90, Max: 95}) {
		t.Errorf("IsOrderTriggered should delegate to IsTriggered using the order's fields")
	}
}

func TestPassesSlippageCheckZeroMeansUnconstrained(t *testing.T) {
	if !PassesSlippageCheck(Increase, Buy, 0, 999999) {
		t.Errorf("acceptablePrice of 0 must always pass")
	}
}

func TestPassesSlippageCheckDirections(t *testing.T) {
	if !PassesSlippageCheck(Increase, Buy, 100, 100) {
		t.Errorf("Increase/Buy should pass when executionPrice <= acceptablePrice")
	}
	if PassesSlippageCheck(Increase, Buy, 100, 101) {
		t.Errorf("Increase/Buy should fail when executionPrice > acceptablePrice")
	}
	if !PassesSlippageCheck(Increase, Sell, 100, 100) {
		t.Errorf("Increase/Sell should pass when executionPrice >= acceptablePrice")
	}
	if PassesSlippageCheck(Increase, Sell, 100, 99) {
		t.Errorf("Increase/Sell should fail when executionPrice < acceptablePrice")
	}
}
