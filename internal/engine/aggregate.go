package engine

import (
	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/shopspring/decimal"
)

// RecomputePosition rebuilds a position's totals from scratch over the
// full set of fills belonging to the given orders. Recomputing rather
// than patching incrementally means a missed update path can never leave
// totals drifted: the fills are the single source of truth.
//
// Totals are pure sums of fill notionals — no rounding happens here.
// TotalNetValue is sell minus buy for a long (BOT) position and
// sign-flipped for a short; OpenQuantity is buy quantity minus sell
// quantity, and a position with zero open quantity is closed.
func RecomputePosition(p *domain.TradePosition, orders []*domain.TradeOrder) *domain.TradePosition {
	c := p.Clone()

	var buyQty, sellQty int64
	buyValue := decimal.Zero
	sellValue := decimal.Zero

	for _, o := range orders {
		for _, f := range o.Fills.Fills() {
			notional := domain.Notional(f.Quantity, f.Price)
			if o.Action == domain.ActionBuy {
				buyQty += f.Quantity
				buyValue = buyValue.Add(notional)
			} else {
				sellQty += f.Quantity
				sellValue = sellValue.Add(notional)
			}
		}
	}

	c.TotalBuyQuantity = buyQty
	c.TotalBuyValue = buyValue
	c.TotalSellQuantity = sellQty
	c.TotalSellValue = sellValue

	net := sellValue.Sub(buyValue)
	if c.Side == domain.SideSold {
		net = net.Neg()
	}
	c.TotalNetValue = net

	c.OpenQuantity = buyQty - sellQty
	c.IsOpen = c.OpenQuantity != 0
	return c
}
