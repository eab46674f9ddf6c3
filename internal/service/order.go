package service

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/engine"
	"github.com/efreitasn/tradecore/internal/store"
	"github.com/shopspring/decimal"
)

var orderSymbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// CreateOrderRequest represents the input for order creation.
type CreateOrderRequest struct {
	OrderKey   int // broker-assigned; 0 lets the service assign one
	StrategyID int
	Contract   domain.Contract
	Action     domain.Action
	Type       domain.OrderType
	Quantity   int64
	LimitPrice *decimal.Decimal
	AuxPrice   *decimal.Decimal
	OCAGroup   string
	OCAType    int
}

// OrderService owns the order mutation and query surface. Mutations run
// as a pipeline: pure engine transitions produce the entities to persist,
// then a commit phase writes them through the optimistic stores. A commit
// that loses a version race returns domain.StaleWriteError for the caller
// to reload and retry.
//
// The cascade on a completing fill (order → OCA siblings → position
// recompute) commits entity by entity; each write is individually atomic
// but cross-entity consistency during the cascade is best-effort.
type OrderService struct {
	orders    *store.OrderStore
	positions *store.PositionStore
	lifecycle *engine.Lifecycle
	oca       *engine.OCACoordinator
	logger    *slog.Logger

	nextKey atomic.Int64
	now     func() time.Time
}

// NewOrderService creates an OrderService with the given dependencies.
func NewOrderService(
	orders *store.OrderStore,
	positions *store.PositionStore,
	lifecycle *engine.Lifecycle,
	oca *engine.OCACoordinator,
	logger *slog.Logger,
) *OrderService {
	s := &OrderService{
		orders:    orders,
		positions: positions,
		lifecycle: lifecycle,
		oca:       oca,
		logger:    logger,
		now:       time.Now,
	}
	s.nextKey.Store(1000)
	return s
}

// CreateOrder validates the request and persists a new UNSUBMITTED order.
func (s *OrderService) CreateOrder(req CreateOrderRequest) (*domain.TradeOrder, error) {
	if req.Action != domain.ActionBuy && req.Action != domain.ActionSell {
		return nil, &domain.ValidationError{Message: "action must be 'BUY' or 'SELL'"}
	}
	switch req.Type {
	case domain.OrderTypeMarket, domain.OrderTypeLimit, domain.OrderTypeStop, domain.OrderTypeStopLimit:
	default:
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown order type: %s, must be one of: MKT, LMT, STP, STPLMT", req.Type),
		}
	}
	if !orderSymbolRegex.MatchString(req.Contract.Symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if (req.Type == domain.OrderTypeLimit || req.Type == domain.OrderTypeStopLimit) && req.LimitPrice == nil {
		return nil, &domain.ValidationError{Message: "limit price is required for LMT and STPLMT orders"}
	}
	if req.Type.IsStop() && req.AuxPrice == nil {
		return nil, &domain.ValidationError{Message: "aux price is required for STP and STPLMT orders"}
	}
	if req.OCAGroup == "" && req.OCAType != 0 {
		return nil, &domain.ValidationError{Message: "oca type requires an oca group"}
	}

	key := req.OrderKey
	if key == 0 {
		key = int(s.nextKey.Add(1))
	}

	order := &domain.TradeOrder{
		OrderKey:           key,
		StrategyID:         req.StrategyID,
		Contract:           req.Contract,
		Action:             req.Action,
		Type:               req.Type,
		Quantity:           req.Quantity,
		LimitPrice:         req.LimitPrice,
		AuxPrice:           req.AuxPrice,
		Status:             domain.OrderStatusUnsubmitted,
		OCAGroup:           req.OCAGroup,
		OCAType:            req.OCAType,
		AverageFilledPrice: decimal.Zero,
		Commission:         decimal.Zero,
		CreatedAt:          s.now(),
	}
	return s.orders.Persist(order)
}

// SubmitOrder moves an order to SUBMITTED after the broker acknowledges it.
func (s *OrderService) SubmitOrder(orderKey int) (*domain.TradeOrder, error) {
	order, err := s.orders.FindByKey(orderKey)
	if err != nil {
		return nil, err
	}
	submitted, err := s.lifecycle.Submit(order)
	if err != nil {
		return nil, err
	}
	return s.orders.Persist(submitted)
}

// CancelOrder moves a non-terminal order to CANCELLED.
func (s *OrderService) CancelOrder(orderKey int) (*domain.TradeOrder, error) {
	order, err := s.orders.FindByKey(orderKey)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.lifecycle.Cancel(order)
	if err != nil {
		return nil, err
	}
	return s.orders.Persist(cancelled)
}

// ApplyExecution applies a broker execution report to an order and runs
// the resulting cascade: the order transition, the OCA sibling resolution
// if the order completed, and the position recompute over all fills tied
// to the contract's open position. A redelivered execution id is a no-op
// returning the stored order unchanged.
func (s *OrderService) ApplyExecution(orderKey int, fill domain.TradeOrderfill) (*domain.TradeOrder, error) {
	order, err := s.orders.FindByKey(orderKey)
	if err != nil {
		return nil, err
	}

	result, err := s.lifecycle.ApplyFill(order, fill)
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		s.logger.Debug("duplicate execution ignored",
			slog.Int("order_key", orderKey),
			slog.String("exec_id", fill.ExecID),
		)
		return order, nil
	}
	updated := result.Order

	// A first fill against a flat contract opens the position.
	position, err := s.positionFor(updated, fill.Time)
	if err != nil {
		return nil, err
	}
	updated.PositionID = position.ID

	// Resolve OCA siblings before committing, so sibling cancellations are
	// part of the same logical unit of work as the fill.
	var siblings []*domain.TradeOrder
	if result.Filled && updated.OCAGroup != "" {
		group := s.orders.ListByOCAGroup(updated.OCAGroup, updated.OCAType)
		siblings, err = s.oca.ResolveSiblings(updated, group)
		if err != nil {
			return nil, err
		}
	}

	// Commit phase: order, then siblings, then the recomputed position.
	committed, err := s.orders.Persist(updated)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.FilledQuantity > 0 && sib.PositionID == 0 {
			sib.PositionID = position.ID
		}
		if _, err := s.orders.Persist(sib); err != nil {
			return nil, fmt.Errorf("persisting OCA sibling %d: %w", sib.OrderKey, err)
		}
	}

	recomputed := engine.RecomputePosition(position, s.orders.ListByPosition(position.ID))
	if _, err := s.positions.Persist(recomputed); err != nil {
		return nil, err
	}

	s.logger.Info("execution applied",
		slog.Int("order_key", committed.OrderKey),
		slog.String("exec_id", fill.ExecID),
		slog.Int64("filled_quantity", committed.FilledQuantity),
		slog.String("status", string(committed.Status)),
	)
	return committed, nil
}

// positionFor returns the open position the order's fills accrue into,
// opening a new one when the contract is flat.
func (s *OrderService) positionFor(order *domain.TradeOrder, openDate time.Time) (*domain.TradePosition, error) {
	if order.PositionID != 0 {
		return s.positions.FindByID(order.PositionID)
	}
	position, err := s.positions.FindOpenBySymbol(order.Contract.Symbol)
	if err == nil {
		return position, nil
	}
	if !errors.Is(err, domain.ErrPositionNotFound) {
		return nil, err
	}
	opened := domain.NewTradePosition(order.Contract, openDate, domain.SideForAction(order.Action))
	return s.positions.Persist(opened)
}

// GetOrder returns the order with the given broker order key.
func (s *OrderService) GetOrder(orderKey int) (*domain.TradeOrder, error) {
	return s.orders.FindByKey(orderKey)
}

// PersistOrder writes a caller-modified order through the optimistic
// store, surfacing domain.StaleWriteError when the caller's copy is
// outdated.
func (s *OrderService) PersistOrder(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	return s.orders.Persist(o)
}

// RefreshOrder reloads the authoritative stored state for an order after
// a known external mutation, such as a cascading OCA cancellation.
func (s *OrderService) RefreshOrder(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	return s.orders.Refresh(o)
}

// RemoveOrder deletes an order if the caller's version is current.
func (s *OrderService) RemoveOrder(o *domain.TradeOrder) error {
	return s.orders.Remove(o)
}

// OrdersByOCAGroup returns all orders in an OCA group in ascending
// order-key order.
func (s *OrderService) OrdersByOCAGroup(group string, ocaType int) []*domain.TradeOrder {
	return s.orders.ListByOCAGroup(group, ocaType)
}

// OrdersByStrategy returns all orders created by a strategy.
func (s *OrderService) OrdersByStrategy(strategyID int) []*domain.TradeOrder {
	return s.orders.ListByStrategy(strategyID)
}
