package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeOrderfill is one execution report applied against an order.
// It is an immutable value: the broker's wire shape is mapped into this
// type at the boundary and nothing in the core reads broker field names.
type TradeOrderfill struct {
	ExecID      string // broker execution id, globally unique per fill
	Exchange    string
	Side        Action
	Quantity    int64
	Price       decimal.Decimal
	CumQuantity int64 // cumulative quantity reported by the broker at fill time
	AvgPrice    decimal.Decimal
	Time        time.Time
}

// FillLedger is the append-only list of fills applied to one order, in
// execution order. Appends are idempotent on ExecID: brokers are known to
// redeliver execution reports, and a replay must not double-count.
type FillLedger struct {
	fills []TradeOrderfill
}

// Append records a fill. If a fill with the same execution id is already
// present the ledger is unchanged and duplicate is true. If the fill would
// push the cumulative quantity past orderQuantity, the ledger is unchanged
// and a FillExceedsOrderError is returned.
func (l *FillLedger) Append(orderKey int, orderQuantity int64, f TradeOrderfill) (duplicate bool, err error) {
	if l.Contains(f.ExecID) {
		return true, nil
	}
	cum := l.CumulativeQuantity()
	if cum+f.Quantity > orderQuantity {
		return false, &FillExceedsOrderError{
			OrderKey:      orderKey,
			OrderQuantity: orderQuantity,
			Cumulative:    cum,
			FillQuantity:  f.Quantity,
		}
	}
	l.fills = append(l.fills, f)
	return false, nil
}

// Contains reports whether a fill with the given execution id has been
// recorded.
func (l *FillLedger) Contains(execID string) bool {
	for _, f := range l.fills {
		if f.ExecID == execID {
			return true
		}
	}
	return false
}

// CumulativeQuantity returns the total quantity across all recorded fills.
func (l *FillLedger) CumulativeQuantity() int64 {
	var total int64
	for _, f := range l.fills {
		total += f.Quantity
	}
	return total
}

// AveragePrice computes the volume-weighted average execution price as
// sum(fill.price × fill.quantity) / cumulative_quantity. Returns
// (0, false) when no fills have been recorded.
func (l *FillLedger) AveragePrice() (decimal.Decimal, bool) {
	cum := l.CumulativeQuantity()
	if cum == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, f := range l.fills {
		total = total.Add(Notional(f.Quantity, f.Price))
	}
	return total.Div(decimal.NewFromInt(cum)), true
}

// Fills returns the recorded fills in execution order. The returned slice
// is a copy; fills themselves are immutable values.
func (l *FillLedger) Fills() []TradeOrderfill {
	out := make([]TradeOrderfill, len(l.fills))
	copy(out, l.fills)
	return out
}

// Len returns the number of distinct fills recorded.
func (l *FillLedger) Len() int {
	return len(l.fills)
}

func (l *FillLedger) clone() FillLedger {
	fills := make([]TradeOrderfill, len(l.fills))
	copy(fills, l.fills)
	return FillLedger{fills: fills}
}
