package store

import (
	"fmt"
	"sort"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/google/btree"
)

// ocaEntry indexes an order for OCA-group scans, ordered by group name,
// then OCA type, then ascending order key. The order-key ordering gives
// the deterministic sibling processing the coordinator relies on.
type ocaEntry struct {
	Group    string
	OCAType  int
	OrderKey int
	ID       int
}

func ocaLess(a, b ocaEntry) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	if a.OCAType != b.OCAType {
		return a.OCAType < b.OCAType
	}
	return a.OrderKey < b.OrderKey
}

// OrderStore persists trade orders through the optimistic registry and
// maintains two secondary indexes: a unique order-key index and a B-tree
// of OCA group membership. Index maintenance happens under the registry
// lock so a reader never observes an order without its index entries.
type OrderStore struct {
	reg   *Registry[*domain.TradeOrder]
	byKey map[int]int // order key → entity id
	oca   *btree.BTreeG[ocaEntry]
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	const degree = 32
	return &OrderStore{
		reg:   NewRegistry[*domain.TradeOrder](domain.ErrOrderNotFound),
		byKey: make(map[int]int),
		oca:   btree.NewG[ocaEntry](degree, ocaLess),
	}
}

// Persist inserts or updates an order under optimistic concurrency and
// keeps the secondary indexes in sync. The order key must be set and, on
// insert, must not collide with another order's key.
func (s *OrderStore) Persist(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	if o.OrderKey == 0 {
		return nil, &domain.ValidationError{Message: "order key must be set before persisting"}
	}

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	if id, ok := s.byKey[o.OrderKey]; ok && id != o.ID {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("order key %d already in use", o.OrderKey),
		}
	}

	prev, hadPrev := s.reg.items[o.ID]

	stored, err := s.reg.persistLocked(o)
	if err != nil {
		return nil, err
	}

	if hadPrev {
		s.unindexLocked(prev)
	}
	s.indexLocked(stored)
	return stored, nil
}

func (s *OrderStore) indexLocked(o *domain.TradeOrder) {
	s.byKey[o.OrderKey] = o.ID
	if o.OCAGroup != "" {
		s.oca.ReplaceOrInsert(ocaEntry{Group: o.OCAGroup, OCAType: o.OCAType, OrderKey: o.OrderKey, ID: o.ID})
	}
}

func (s *OrderStore) unindexLocked(o *domain.TradeOrder) {
	delete(s.byKey, o.OrderKey)
	if o.OCAGroup != "" {
		s.oca.Delete(ocaEntry{Group: o.OCAGroup, OCAType: o.OCAType, OrderKey: o.OrderKey})
	}
}

// FindByID returns the order with the given entity id, or
// domain.ErrOrderNotFound.
func (s *OrderStore) FindByID(id int) (*domain.TradeOrder, error) {
	return s.reg.FindByID(id)
}

// FindByKey returns the order with the given broker order key, or
// domain.ErrOrderNotFound.
func (s *OrderStore) FindByKey(orderKey int) (*domain.TradeOrder, error) {
	s.reg.mu.RLock()
	defer s.reg.mu.RUnlock()

	id, ok := s.byKey[orderKey]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return s.reg.findByIDLocked(id)
}

// Refresh reloads the authoritative stored state for an order.
func (s *OrderStore) Refresh(o *domain.TradeOrder) (*domain.TradeOrder, error) {
	return s.reg.Refresh(o)
}

// Remove deletes an order if its version matches, unindexing it.
func (s *OrderStore) Remove(o *domain.TradeOrder) error {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	prev, ok := s.reg.items[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if err := s.reg.removeLocked(o); err != nil {
		return err
	}
	s.unindexLocked(prev)
	return nil
}

// ListByOCAGroup returns all orders sharing the OCA group name and type,
// in ascending order-key order.
func (s *OrderStore) ListByOCAGroup(group string, ocaType int) []*domain.TradeOrder {
	if group == "" {
		return nil
	}

	s.reg.mu.RLock()
	defer s.reg.mu.RUnlock()

	var out []*domain.TradeOrder
	pivot := ocaEntry{Group: group, OCAType: ocaType}
	s.oca.AscendGreaterOrEqual(pivot, func(e ocaEntry) bool {
		if e.Group != group || e.OCAType != ocaType {
			return false
		}
		if stored, ok := s.reg.items[e.ID]; ok {
			out = append(out, stored.Clone())
		}
		return true
	})
	return out
}

// ListByPosition returns all orders attached to a position, in ascending
// order-key order.
func (s *OrderStore) ListByPosition(positionID int) []*domain.TradeOrder {
	return s.list(func(o *domain.TradeOrder) bool { return o.PositionID == positionID })
}

// ListByStrategy returns all orders created by a strategy, in ascending
// order-key order.
func (s *OrderStore) ListByStrategy(strategyID int) []*domain.TradeOrder {
	return s.list(func(o *domain.TradeOrder) bool { return o.StrategyID == strategyID })
}

func (s *OrderStore) list(keep func(*domain.TradeOrder) bool) []*domain.TradeOrder {
	var out []*domain.TradeOrder
	for _, o := range s.reg.All() {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderKey < out[j].OrderKey })
	return out
}
