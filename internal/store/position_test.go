package store

import (
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
)

func newOpenPosition(symbol string) *domain.TradePosition {
	return domain.NewTradePosition(
		domain.Contract{Symbol: symbol, SecType: domain.SecTypeStock, Exchange: "SMART", Currency: "USD"},
		time.Date(2025, 6, 2, 9, 35, 0, 0, time.UTC),
		domain.SideBought,
	)
}

func TestPositionStore_FindOpenBySymbol(t *testing.T) {
	s := NewPositionStore()

	stored, err := s.Persist(newOpenPosition("TEST"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.FindOpenBySymbol("TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != stored.ID {
		t.Fatalf("FindOpenBySymbol returned id %d, want %d", got.ID, stored.ID)
	}

	if _, err := s.FindOpenBySymbol("FLAT"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound for flat contract, got %v", err)
	}
}

func TestPositionStore_RejectsSecondOpenPosition(t *testing.T) {
	s := NewPositionStore()

	if _, err := s.Persist(newOpenPosition("TEST")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.Persist(newOpenPosition("TEST"))
	if !errors.Is(err, ErrOpenPositionExists) {
		t.Fatalf("expected ErrOpenPositionExists, got %v", err)
	}

	// A different contract is unaffected.
	if _, err := s.Persist(newOpenPosition("OTHER")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPositionStore_ClosingFreesTheContract(t *testing.T) {
	s := NewPositionStore()

	stored, err := s.Persist(newOpenPosition("TEST"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed := stored.Clone()
	closed.OpenQuantity = 0
	closed.IsOpen = false
	if _, err := s.Persist(closed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The closed position is still readable, but the contract is flat.
	if _, err := s.FindByID(stored.ID); err != nil {
		t.Fatalf("closed position should remain stored: %v", err)
	}
	if _, err := s.FindOpenBySymbol("TEST"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("expected flat contract after close, got %v", err)
	}

	// A new position may now open on the same contract.
	if _, err := s.Persist(newOpenPosition("TEST")); err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
}

func TestPositionStore_StaleWriteRejected(t *testing.T) {
	s := NewPositionStore()

	v0, err := s.Persist(newOpenPosition("TEST"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := v0.Clone()
	first.TotalBuyQuantity = 100
	if _, err := s.Persist(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := v0.Clone()
	second.TotalBuyQuantity = 999
	_, err = s.Persist(second)

	var stale *domain.StaleWriteError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleWriteError, got %v", err)
	}
}
