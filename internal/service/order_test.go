package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/engine"
	"github.com/efreitasn/tradecore/internal/store"
	"github.com/shopspring/decimal"
)

func newTestServices(policy engine.StopPolicy) (*OrderService, *PositionService) {
	orders := store.NewOrderStore()
	positions := store.NewPositionStore()
	lifecycle := engine.NewLifecycle(
		decimal.RequireFromString("0.005"),
		decimal.RequireFromString("0.01"),
	)
	oca := engine.NewOCACoordinator(policy, lifecycle)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrderService(orders, positions, lifecycle, oca, logger),
		NewPositionService(positions, orders)
}

func testContract() domain.Contract {
	return domain.Contract{Symbol: "TEST", SecType: domain.SecTypeStock, Exchange: "SMART", Currency: "USD"}
}

func limitOrderReq(orderKey int, action domain.Action, quantity int64, price string) CreateOrderRequest {
	limit := decimal.RequireFromString(price)
	return CreateOrderRequest{
		OrderKey:   orderKey,
		StrategyID: 1,
		Contract:   testContract(),
		Action:     action,
		Type:       domain.OrderTypeLimit,
		Quantity:   quantity,
		LimitPrice: &limit,
	}
}

func execution(execID string, side domain.Action, quantity int64, price string) domain.TradeOrderfill {
	return domain.TradeOrderfill{
		ExecID:   execID,
		Exchange: "ISLAND",
		Side:     side,
		Quantity: quantity,
		Price:    decimal.RequireFromString(price),
		Time:     time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
}

func mustCreateSubmitted(t *testing.T, svc *OrderService, req CreateOrderRequest) *domain.TradeOrder {
	t.Helper()
	created, err := svc.CreateOrder(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	submitted, err := svc.SubmitOrder(created.OrderKey)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return submitted
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	svc, _ := newTestServices(engine.StopPolicyStopExit)

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"bad action", CreateOrderRequest{Action: "HOLD", Type: domain.OrderTypeMarket, Contract: testContract(), Quantity: 1}},
		{"bad type", CreateOrderRequest{Action: domain.ActionBuy, Type: "TRAIL", Contract: testContract(), Quantity: 1}},
		{"bad symbol", CreateOrderRequest{Action: domain.ActionBuy, Type: domain.OrderTypeMarket, Contract: domain.Contract{Symbol: "bad!"}, Quantity: 1}},
		{"zero quantity", CreateOrderRequest{Action: domain.ActionBuy, Type: domain.OrderTypeMarket, Contract: testContract(), Quantity: 0}},
		{"limit without price", CreateOrderRequest{Action: domain.ActionBuy, Type: domain.OrderTypeLimit, Contract: testContract(), Quantity: 1}},
		{"stop without aux price", CreateOrderRequest{Action: domain.ActionBuy, Type: domain.OrderTypeStop, Contract: testContract(), Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(tt.req)
			var v *domain.ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestOrderService_Lifecycle_PartialThenComplete(t *testing.T) {
	svc, posSvc := newTestServices(engine.StopPolicyStopExit)
	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))

	// First partial fill opens the position.
	after, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 500, "100.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if after.Status != domain.OrderStatusSubmitted || after.FilledQuantity != 500 {
		t.Fatalf("after partial: status %s filled %d", after.Status, after.FilledQuantity)
	}
	if after.PositionID == 0 {
		t.Fatal("partial fill did not attach order to a position")
	}

	position, err := posSvc.OpenPosition("TEST")
	if err != nil {
		t.Fatalf("open position: %v", err)
	}
	if position.OpenQuantity != 500 || !position.IsOpen {
		t.Fatalf("position after partial: open %d isOpen %v", position.OpenQuantity, position.IsOpen)
	}

	// Second fill completes the order.
	after, err = svc.ApplyExecution(1001, execution("exec-2", domain.ActionBuy, 500, "101.00"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if after.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", after.Status)
	}
	if !after.AverageFilledPrice.Equal(decimal.RequireFromString("100.50")) {
		t.Fatalf("average price = %s, want 100.50", after.AverageFilledPrice)
	}
	if !after.Commission.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("commission = %s, want 5", after.Commission)
	}

	position, err = posSvc.OpenPosition("TEST")
	if err != nil {
		t.Fatalf("open position: %v", err)
	}
	if position.OpenQuantity != 1000 {
		t.Fatalf("position open quantity = %d, want 1000", position.OpenQuantity)
	}
}

func TestOrderService_DuplicateExecution_NoOp(t *testing.T) {
	svc, posSvc := newTestServices(engine.StopPolicyStopExit)
	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))

	if _, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 500, "100.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before, err := svc.GetOrder(1001)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Redelivered execution report: same exec id.
	after, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 500, "100.00"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if after.FilledQuantity != before.FilledQuantity || after.Version != before.Version {
		t.Fatalf("replay changed stored order: filled %d version %d", after.FilledQuantity, after.Version)
	}

	position, err := posSvc.OpenPosition("TEST")
	if err != nil {
		t.Fatalf("open position: %v", err)
	}
	if position.TotalBuyQuantity != 500 {
		t.Fatalf("replay double-counted: buy quantity %d, want 500", position.TotalBuyQuantity)
	}
}

// A redelivered execution report can arrive after the fill it carries has
// already completed the order. It must still be a no-op, not an invalid
// transition.
func TestOrderService_DuplicateExecutionAfterFilled_NoOp(t *testing.T) {
	svc, posSvc := newTestServices(engine.StopPolicyStopExit)
	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))

	if _, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 1000, "100.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before, err := svc.GetOrder(1001)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if before.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", before.Status)
	}

	after, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 1000, "100.00"))
	if err != nil {
		t.Fatalf("replay against filled order: %v", err)
	}
	if after.Status != domain.OrderStatusFilled || after.Version != before.Version {
		t.Fatalf("replay changed stored order: status %s version %d", after.Status, after.Version)
	}

	position, err := posSvc.OpenPosition("TEST")
	if err != nil {
		t.Fatalf("open position: %v", err)
	}
	if position.TotalBuyQuantity != 1000 {
		t.Fatalf("replay double-counted: buy quantity %d, want 1000", position.TotalBuyQuantity)
	}
}

// Round trip: BUY 1000 @ 100.00 filled, then SELL 1000 @ 104.00 filled on
// the same contract nets 4000.00 and closes the position.
func TestOrderService_PositionRoundTrip(t *testing.T) {
	svc, posSvc := newTestServices(engine.StopPolicyStopExit)

	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))
	if _, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 1000, "100.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	opened, err := posSvc.OpenPosition("TEST")
	if err != nil {
		t.Fatalf("open position: %v", err)
	}

	mustCreateSubmitted(t, svc, limitOrderReq(1002, domain.ActionSell, 1000, "104.00"))
	if _, err := svc.ApplyExecution(1002, execution("exec-2", domain.ActionSell, 1000, "104.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	closed, err := posSvc.GetPosition(opened.ID)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if !closed.TotalNetValue.Equal(decimal.RequireFromString("4000")) {
		t.Fatalf("net value = %s, want 4000", closed.TotalNetValue)
	}
	if closed.OpenQuantity != 0 || closed.IsOpen {
		t.Fatalf("expected closed flat position, got open %d isOpen %v", closed.OpenQuantity, closed.IsOpen)
	}

	// The contract is flat again.
	if _, err := posSvc.OpenPosition("TEST"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("expected flat contract, got %v", err)
	}

	orders, err := posSvc.OrdersForPosition(opened.ID)
	if err != nil {
		t.Fatalf("orders for position: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders on the position, got %d", len(orders))
	}
}

// Two bracket groups: one limit target filling cancels only its own
// group's stop sibling; the other group is unaffected.
func TestOrderService_OCACascade_IsolatedPerGroup(t *testing.T) {
	svc, _ := newTestServices(engine.StopPolicyStopExit)

	// Open the position.
	mustCreateSubmitted(t, svc, limitOrderReq(1000, domain.ActionBuy, 1000, "20.00"))
	if _, err := svc.ApplyExecution(1000, execution("exec-0", domain.ActionBuy, 1000, "20.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	aux := decimal.RequireFromString("19.80")
	newBracketLeg := func(orderKey int, typ domain.OrderType, group string) CreateOrderRequest {
		req := limitOrderReq(orderKey, domain.ActionSell, 1000, "20.60")
		req.Type = typ
		req.OCAGroup = group
		req.OCAType = 2
		if typ.IsStop() {
			req.AuxPrice = &aux
		}
		return req
	}

	mustCreateSubmitted(t, svc, newBracketLeg(1001, domain.OrderTypeLimit, "G1"))
	mustCreateSubmitted(t, svc, newBracketLeg(1002, domain.OrderTypeStop, "G1"))
	mustCreateSubmitted(t, svc, newBracketLeg(2001, domain.OrderTypeLimit, "G2"))
	mustCreateSubmitted(t, svc, newBracketLeg(2002, domain.OrderTypeStop, "G2"))

	// The G1 target fills.
	filled, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionSell, 1000, "20.60"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if filled.Status != domain.OrderStatusFilled {
		t.Fatalf("target status = %s, want FILLED", filled.Status)
	}

	// Its G1 stop sibling is cancelled.
	stop, err := svc.GetOrder(1002)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stop.Status != domain.OrderStatusCancelled {
		t.Fatalf("G1 stop status = %s, want CANCELLED", stop.Status)
	}

	// The other group is untouched.
	for _, key := range []int{2001, 2002} {
		o, err := svc.GetOrder(key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if o.Status != domain.OrderStatusSubmitted {
			t.Fatalf("G2 order %d status = %s, want SUBMITTED", key, o.Status)
		}
	}
}

// Under the stop-exit policy, a stop exit records the sibling stop as
// filled at its own stop price, and those synthesized fills flow into the
// position totals.
func TestOrderService_OCACascade_StopExitSynthesizesFill(t *testing.T) {
	svc, posSvc := newTestServices(engine.StopPolicyStopExit)

	mustCreateSubmitted(t, svc, limitOrderReq(1000, domain.ActionBuy, 1000, "20.00"))
	if _, err := svc.ApplyExecution(1000, execution("exec-0", domain.ActionBuy, 1000, "20.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	aux1 := decimal.RequireFromString("19.80")
	stop1 := limitOrderReq(1001, domain.ActionSell, 500, "20.60")
	stop1.Type = domain.OrderTypeStop
	stop1.OCAGroup = "G1"
	stop1.OCAType = 2
	stop1.AuxPrice = &aux1

	aux2 := decimal.RequireFromString("19.70")
	stop2 := limitOrderReq(1002, domain.ActionSell, 500, "20.60")
	stop2.Type = domain.OrderTypeStop
	stop2.OCAGroup = "G1"
	stop2.OCAType = 2
	stop2.AuxPrice = &aux2

	mustCreateSubmitted(t, svc, stop1)
	mustCreateSubmitted(t, svc, stop2)

	// The first stop is executed by the broker.
	if _, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionSell, 500, "19.80")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	sibling, err := svc.GetOrder(1002)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sibling.Status != domain.OrderStatusFilled {
		t.Fatalf("sibling stop status = %s, want FILLED", sibling.Status)
	}
	if !sibling.AverageFilledPrice.Equal(aux2) {
		t.Fatalf("sibling filled price = %s, want its stop price %s", sibling.AverageFilledPrice, aux2)
	}

	// Both stop fills are in the position: 1000 bought, 1000 sold.
	position, err := posSvc.GetPosition(sibling.PositionID)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if position.TotalSellQuantity != 1000 || position.IsOpen {
		t.Fatalf("position after cascade: sold %d isOpen %v", position.TotalSellQuantity, position.IsOpen)
	}
}

func TestOrderService_PersistOrder_StaleWriteSurfaced(t *testing.T) {
	svc, _ := newTestServices(engine.StopPolicyStopExit)
	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))

	// A UI reader grabs a copy, then a broker event advances the order.
	uiCopy, err := svc.GetOrder(1001)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.ApplyExecution(1001, execution("exec-1", domain.ActionBuy, 500, "100.00")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// The UI write must lose.
	uiCopy.OCAGroup = "edited"
	_, err = svc.PersistOrder(uiCopy)
	var stale *domain.StaleWriteError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleWriteError, got %v", err)
	}

	// Reload-and-retry succeeds.
	refreshed, err := svc.RefreshOrder(uiCopy)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.FilledQuantity != 500 {
		t.Fatalf("refresh did not return authoritative state: filled %d", refreshed.FilledQuantity)
	}
	refreshed.OCAGroup = "edited"
	if _, err := svc.PersistOrder(refreshed); err != nil {
		t.Fatalf("retry after refresh: %v", err)
	}
}

func TestOrderService_CancelOrder(t *testing.T) {
	svc, _ := newTestServices(engine.StopPolicyStopExit)
	mustCreateSubmitted(t, svc, limitOrderReq(1001, domain.ActionBuy, 1000, "100.00"))

	cancelled, err := svc.CancelOrder(1001)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	// Cancelling again is an invalid transition.
	_, err = svc.CancelOrder(1001)
	var transition *domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	svc, _ := newTestServices(engine.StopPolicyStopExit)

	if _, err := svc.GetOrder(9999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
