package engine

import (
	"fmt"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/google/uuid"
)

// StopPolicy controls what happens to a stop-order sibling when another
// member of its OCA group fills. Bracket conventions differ between
// brokers: some report the protective stop as executed at its trigger
// price, others as plain cancelled.
type StopPolicy string

const (
	// StopPolicyStopExit synthesizes a fill for a stop sibling only when
	// the order that triggered the cascade was itself a stop order — the
	// position was closed by a stop, so the sibling stop is recorded as
	// filled at its trigger price to keep the audit trail accurate. A
	// limit or market exit cancels stop siblings like any other.
	StopPolicyStopExit StopPolicy = "synthesize-on-stop-exit"
	// StopPolicySynthesizeFill always records stop siblings as filled at
	// their stop price for their remaining quantity.
	StopPolicySynthesizeFill StopPolicy = "synthesize-fill"
	// StopPolicyCancel cancels stop siblings unconditionally.
	StopPolicyCancel StopPolicy = "cancel"
)

// ValidStopPolicy reports whether s names a known policy.
func ValidStopPolicy(s StopPolicy) bool {
	switch s {
	case StopPolicyStopExit, StopPolicySynthesizeFill, StopPolicyCancel:
		return true
	}
	return false
}

// OCACoordinator enforces one-cancels-all semantics: when an order in a
// named OCA group fills, every sibling still SUBMITTED is forced out of
// the market — cancelled, or closed via a synthesized fill at the stop
// price when the configured policy calls for it.
type OCACoordinator struct {
	policy    StopPolicy
	lifecycle *Lifecycle
}

// NewOCACoordinator creates a coordinator using the given stop policy and
// lifecycle for driving synthesized fills.
func NewOCACoordinator(policy StopPolicy, lifecycle *Lifecycle) *OCACoordinator {
	return &OCACoordinator{policy: policy, lifecycle: lifecycle}
}

func (c *OCACoordinator) synthesizeFor(filled, sib *domain.TradeOrder) bool {
	if !sib.Type.IsStop() || sib.AuxPrice == nil {
		return false
	}
	switch c.policy {
	case StopPolicySynthesizeFill:
		return true
	case StopPolicyStopExit:
		return filled.Type.IsStop()
	}
	return false
}

// ResolveSiblings computes the post-fill state of the filled order's OCA
// siblings. siblings should be sorted by ascending order key (the
// store's OCA scan returns them that way); orders outside the filled
// order's group and type, the filled order itself, and any sibling not
// in SUBMITTED are skipped. The input orders are not mutated; the
// returned copies are the entities to persist.
func (c *OCACoordinator) ResolveSiblings(filled *domain.TradeOrder, siblings []*domain.TradeOrder) ([]*domain.TradeOrder, error) {
	var resolved []*domain.TradeOrder
	for _, sib := range siblings {
		if !sib.InOCAGroup(filled.OCAGroup, filled.OCAType) {
			continue
		}
		if sib.OrderKey == filled.OrderKey || sib.Status != domain.OrderStatusSubmitted {
			continue
		}

		if c.synthesizeFor(filled, sib) {
			at := time.Now()
			if filled.FilledDate != nil {
				at = *filled.FilledDate
			}
			result, err := c.lifecycle.ApplyFill(sib, domain.TradeOrderfill{
				ExecID:      uuid.New().String(),
				Exchange:    sib.Contract.Exchange,
				Side:        sib.Action,
				Quantity:    sib.RemainingQuantity(),
				Price:       *sib.AuxPrice,
				CumQuantity: sib.Quantity,
				AvgPrice:    *sib.AuxPrice,
				Time:        at,
			})
			if err != nil {
				return nil, fmt.Errorf("synthesizing stop fill for order %d: %w", sib.OrderKey, err)
			}
			resolved = append(resolved, result.Order)
			continue
		}

		cancelled, err := c.lifecycle.Cancel(sib)
		if err != nil {
			return nil, fmt.Errorf("cancelling OCA sibling %d: %w", sib.OrderKey, err)
		}
		resolved = append(resolved, cancelled)
	}
	return resolved, nil
}
