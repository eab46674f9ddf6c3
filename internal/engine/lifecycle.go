package engine

import (
	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/shopspring/decimal"
)

// Lifecycle drives a single order through its state machine:
//
//	UNSUBMITTED → SUBMITTED → {FILLED, CANCELLED}
//
// plus the two explicitly permitted shortcuts UNSUBMITTED → CANCELLED
// (rejected before broker ack) and SUBMITTED → CANCELLED (broker or OCA
// cancellation). FILLED and CANCELLED are terminal.
//
// Every operation is pure: it works on a clone of the input order and
// returns the mutated copy, leaving the caller's entity untouched on
// failure. Persisting the result is the caller's commit phase.
type Lifecycle struct {
	commissionPerShare decimal.Decimal
	minTick            decimal.Decimal
}

// NewLifecycle creates a Lifecycle with the account's per-share commission
// rate and the instrument's minimum tick used to round commissions.
func NewLifecycle(commissionPerShare, minTick decimal.Decimal) *Lifecycle {
	return &Lifecycle{
		commissionPerShare: commissionPerShare,
		minTick:            minTick,
	}
}

// FillResult is the outcome of applying one execution report.
type FillResult struct {
	Order     *domain.TradeOrder
	Duplicate bool // execution id was already recorded; Order is unchanged
	Filled    bool // this fill completed the order
}

// Submit moves an order from UNSUBMITTED to SUBMITTED.
func (l *Lifecycle) Submit(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	if o.Status != domain.OrderStatusUnsubmitted {
		return nil, &domain.InvalidTransitionError{
			OrderKey: o.OrderKey,
			From:     o.Status,
			To:       domain.OrderStatusSubmitted,
		}
	}
	c := o.Clone()
	c.Status = domain.OrderStatusSubmitted
	return c, nil
}

// ApplyFill records an execution report against a SUBMITTED order.
// Re-applying a fill whose execution id is already recorded is an
// idempotent no-op, not an error: brokers redeliver execution reports.
// FilledQuantity and AverageFilledPrice are recomputed from the full
// ledger; when the order completes it transitions to FILLED, stamps the
// fill date, and charges commission at the configured per-share rate.
func (l *Lifecycle) ApplyFill(o *domain.TradeOrder, fill domain.TradeOrderfill) (FillResult, error) {
	// A redelivered execution id is a no-op regardless of status: the
	// fill that carried it may already have completed the order.
	if o.Fills.Contains(fill.ExecID) {
		return FillResult{Order: o, Duplicate: true}, nil
	}
	if o.Status != domain.OrderStatusSubmitted {
		return FillResult{}, &domain.InvalidTransitionError{
			OrderKey: o.OrderKey,
			From:     o.Status,
			To:       domain.OrderStatusFilled,
		}
	}

	c := o.Clone()
	if _, err := c.Fills.Append(c.OrderKey, c.Quantity, fill); err != nil {
		return FillResult{}, err
	}

	c.FilledQuantity = c.Fills.CumulativeQuantity()
	if avg, ok := c.Fills.AveragePrice(); ok {
		c.AverageFilledPrice = avg
	}

	if c.FilledQuantity == c.Quantity {
		c.Status = domain.OrderStatusFilled
		t := fill.Time
		c.FilledDate = &t
		c.Commission = domain.Commission(c.FilledQuantity, l.commissionPerShare, l.minTick)
		return FillResult{Order: c, Filled: true}, nil
	}
	return FillResult{Order: c}, nil
}

// Cancel moves a non-terminal order to CANCELLED.
func (l *Lifecycle) Cancel(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	if o.Status.IsTerminal() {
		return nil, &domain.InvalidTransitionError{
			OrderKey: o.OrderKey,
			From:     o.Status,
			To:       domain.OrderStatusCancelled,
		}
	}
	c := o.Clone()
	c.Status = domain.OrderStatusCancelled
	return c, nil
}
