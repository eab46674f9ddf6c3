package store

import (
	"errors"

	"github.com/efreitasn/tradecore/internal/domain"
)

// ErrOpenPositionExists is returned when persisting an open position for
// a contract that already has a different open position.
var ErrOpenPositionExists = errors.New("open_position_exists")

// PositionStore persists trade positions through the optimistic registry
// and maintains the at-most-one-open-position-per-contract invariant via
// an open-position index keyed by symbol. Closed positions stay in the
// registry for audit; only the index entry is dropped.
type PositionStore struct {
	reg          *Registry[*domain.TradePosition]
	openBySymbol map[string]int // symbol → entity id of the open position
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		reg:          NewRegistry[*domain.TradePosition](domain.ErrPositionNotFound),
		openBySymbol: make(map[string]int),
	}
}

// Persist inserts or updates a position under optimistic concurrency,
// enforcing that a contract never has two open positions at once.
func (s *PositionStore) Persist(p *domain.TradePosition) (*domain.TradePosition, error) {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	if p.IsOpen {
		if id, ok := s.openBySymbol[p.Contract.Symbol]; ok && id != p.ID {
			return nil, ErrOpenPositionExists
		}
	}

	stored, err := s.reg.persistLocked(p)
	if err != nil {
		return nil, err
	}

	if stored.IsOpen {
		s.openBySymbol[stored.Contract.Symbol] = stored.ID
	} else if s.openBySymbol[stored.Contract.Symbol] == stored.ID {
		delete(s.openBySymbol, stored.Contract.Symbol)
	}
	return stored, nil
}

// FindByID returns the position with the given entity id, or
// domain.ErrPositionNotFound.
func (s *PositionStore) FindByID(id int) (*domain.TradePosition, error) {
	return s.reg.FindByID(id)
}

// FindOpenBySymbol returns the contract's currently open position, or
// domain.ErrPositionNotFound if the contract is flat.
func (s *PositionStore) FindOpenBySymbol(symbol string) (*domain.TradePosition, error) {
	s.reg.mu.RLock()
	defer s.reg.mu.RUnlock()

	id, ok := s.openBySymbol[symbol]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return s.reg.findByIDLocked(id)
}

// Refresh reloads the authoritative stored state for a position.
func (s *PositionStore) Refresh(p *domain.TradePosition) (*domain.TradePosition, error) {
	return s.reg.Refresh(p)
}

// Remove deletes a position if its version matches. Intended for
// administrative cleanup; the engine itself only ever marks positions
// closed.
func (s *PositionStore) Remove(p *domain.TradePosition) error {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	prev, ok := s.reg.items[p.ID]
	if !ok {
		return domain.ErrPositionNotFound
	}
	if err := s.reg.removeLocked(p); err != nil {
		return err
	}
	if s.openBySymbol[prev.Contract.Symbol] == prev.ID {
		delete(s.openBySymbol, prev.Contract.Symbol)
	}
	return nil
}
