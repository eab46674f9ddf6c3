package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrPositionNotFound = errors.New("position_not_found")
	ErrEntityNotFound   = errors.New("entity_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidTransitionError reports an order lifecycle rule violation.
// It carries the order key and the attempted edge so the caller can
// distinguish a logic error from a retryable condition.
type InvalidTransitionError struct {
	OrderKey int
	From     OrderStatus
	To       OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for order %d: %s -> %s", e.OrderKey, e.From, e.To)
}

// StaleWriteError reports an optimistic-concurrency conflict: the
// submitted entity's version no longer matches the stored version.
// The caller may reload and retry; the store is left unchanged.
type StaleWriteError struct {
	EntityID         int
	StoredVersion    int
	SubmittedVersion int
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on entity %d: stored version %d, submitted version %d",
		e.EntityID, e.StoredVersion, e.SubmittedVersion)
}

// FillExceedsOrderError reports a fill that would push the cumulative
// filled quantity past the order quantity. The order is left untouched.
type FillExceedsOrderError struct {
	OrderKey      int
	OrderQuantity int64
	Cumulative    int64
	FillQuantity  int64
}

func (e *FillExceedsOrderError) Error() string {
	return fmt.Sprintf("fill of %d on order %d exceeds order quantity: %d already filled of %d",
		e.FillQuantity, e.OrderKey, e.Cumulative, e.OrderQuantity)
}
