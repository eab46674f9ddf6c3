package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction a position was opened on.
type Side string

const (
	SideBought Side = "BOT"
	SideSold   Side = "SLD"
)

// SideForAction returns the position side implied by the opening order's
// action: a BUY opens a long (BOT) position, a SELL opens a short (SLD).
func SideForAction(a Action) Side {
	if a == ActionSell {
		return SideSold
	}
	return SideBought
}

// TradePosition is the aggregated exposure for one contract, starting from
// a given open timestamp and side. Totals are recomputed from scratch over
// the full fill set on every update, never patched incrementally. A closed
// position is kept for audit, never deleted; a contract has at most one
// open position at a time.
type TradePosition struct {
	EntityMeta

	Contract Contract
	OpenDate time.Time
	Side     Side

	TotalBuyQuantity  int64
	TotalBuyValue     decimal.Decimal
	TotalSellQuantity int64
	TotalSellValue    decimal.Decimal
	TotalNetValue     decimal.Decimal

	// OpenQuantity is buy quantity minus sell quantity; zero means flat.
	OpenQuantity int64
	IsOpen       bool
}

// NewTradePosition opens a position for a contract at the given time.
func NewTradePosition(contract Contract, openDate time.Time, side Side) *TradePosition {
	return &TradePosition{
		Contract:       contract,
		OpenDate:       openDate,
		Side:           side,
		TotalBuyValue:  decimal.Zero,
		TotalSellValue: decimal.Zero,
		TotalNetValue:  decimal.Zero,
		IsOpen:         true,
	}
}

// Clone returns a deep copy of the position.
func (p *TradePosition) Clone() *TradePosition {
	c := *p
	return &c
}
