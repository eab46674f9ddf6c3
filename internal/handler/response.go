package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/store"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// WriteDomainError maps a core error to its HTTP representation. Conflicts
// (stale writes, duplicate open positions) map to 409 so callers know to
// reload and retry; lifecycle violations map to 422 as logic errors.
func WriteDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var transition *domain.InvalidTransitionError
	var stale *domain.StaleWriteError
	var exceeds *domain.FillExceedsOrderError

	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, "validation_error", validation.Message)
	case errors.As(err, &transition):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_transition", transition.Error())
	case errors.As(err, &exceeds):
		WriteError(w, http.StatusUnprocessableEntity, "fill_exceeds_order", exceeds.Error())
	case errors.As(err, &stale):
		WriteError(w, http.StatusConflict, "stale_write_conflict", stale.Error())
	case errors.Is(err, store.ErrOpenPositionExists):
		WriteError(w, http.StatusConflict, "open_position_exists", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrEntityNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}
