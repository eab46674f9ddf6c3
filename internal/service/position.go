package service

import (
	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/store"
)

// PositionService owns the position query surface exposed to the UI and
// reporting collaborators. All mutation of positions happens inside the
// fill cascade in OrderService; this service only reads.
type PositionService struct {
	positions *store.PositionStore
	orders    *store.OrderStore
}

// NewPositionService creates a PositionService with the given stores.
func NewPositionService(positions *store.PositionStore, orders *store.OrderStore) *PositionService {
	return &PositionService{positions: positions, orders: orders}
}

// OpenPosition returns the contract's currently open position, or
// domain.ErrPositionNotFound when the contract is flat.
func (s *PositionService) OpenPosition(symbol string) (*domain.TradePosition, error) {
	return s.positions.FindOpenBySymbol(symbol)
}

// GetPosition returns a position by entity id, open or closed.
func (s *PositionService) GetPosition(id int) (*domain.TradePosition, error) {
	return s.positions.FindByID(id)
}

// OrdersForPosition returns all orders whose fills accrue into the given
// position, in ascending order-key order.
func (s *PositionService) OrdersForPosition(positionID int) ([]*domain.TradeOrder, error) {
	if _, err := s.positions.FindByID(positionID); err != nil {
		return nil, err
	}
	return s.orders.ListByPosition(positionID), nil
}

// RefreshPosition reloads the authoritative stored state for a position.
func (s *PositionService) RefreshPosition(p *domain.TradePosition) (*domain.TradePosition, error) {
	return s.positions.Refresh(p)
}
