package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action indicates the direction of an order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// OrderType distinguishes how an order executes at the broker.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MKT"
	OrderTypeLimit     OrderType = "LMT"
	OrderTypeStop      OrderType = "STP"
	OrderTypeStopLimit OrderType = "STPLMT"
)

// IsStop reports whether the order type is a stop or stop-limit order.
func (t OrderType) IsStop() bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}

// OrderStatus represents the lifecycle state of an order.
// FILLED and CANCELLED are terminal.
type OrderStatus string

const (
	OrderStatusUnsubmitted OrderStatus = "UNSUBMITTED"
	OrderStatusSubmitted   OrderStatus = "SUBMITTED"
	OrderStatusFilled      OrderStatus = "FILLED"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// TradeOrder is one order sent (or pending send) to the broker.
// OrderKey is broker-assigned, unique, and immutable once set; it is the
// key external collaborators look orders up by. PositionID links the order
// to the trade position its fills accrue into, set when the first fill
// against a flat contract opens one.
type TradeOrder struct {
	EntityMeta

	OrderKey   int
	StrategyID int
	Contract   Contract
	Action     Action
	Type       OrderType
	Quantity   int64
	LimitPrice *decimal.Decimal // nil unless LMT/STPLMT
	AuxPrice   *decimal.Decimal // stop trigger price, nil unless STP/STPLMT
	Status     OrderStatus

	OCAGroup string // empty when the order belongs to no OCA group
	OCAType  int

	PositionID         int // zero until a fill attaches the order to a position
	FilledQuantity     int64
	AverageFilledPrice decimal.Decimal
	FilledDate         *time.Time
	Commission         decimal.Decimal

	CreatedAt time.Time
	Fills     FillLedger
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (o *TradeOrder) Clone() *TradeOrder {
	c := *o
	c.Fills = o.Fills.clone()
	if o.LimitPrice != nil {
		p := *o.LimitPrice
		c.LimitPrice = &p
	}
	if o.AuxPrice != nil {
		p := *o.AuxPrice
		c.AuxPrice = &p
	}
	if o.FilledDate != nil {
		d := *o.FilledDate
		c.FilledDate = &d
	}
	return &c
}

// RemainingQuantity returns the unfilled portion of the order.
func (o *TradeOrder) RemainingQuantity() int64 {
	return o.Quantity - o.FilledQuantity
}

// InOCAGroup reports whether the order belongs to the given OCA group.
// Membership requires both a matching non-empty group name and a matching
// OCA type.
func (o *TradeOrder) InOCAGroup(group string, ocaType int) bool {
	return o.OCAGroup != "" && o.OCAGroup == group && o.OCAType == ocaType
}
