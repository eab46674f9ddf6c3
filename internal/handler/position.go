package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/service"
	"github.com/go-chi/chi/v5"
)

// PositionHandler exposes the position query surface over HTTP.
type PositionHandler struct {
	positionSvc *service.PositionService
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positionSvc *service.PositionService) *PositionHandler {
	return &PositionHandler{positionSvc: positionSvc}
}

// positionResponse is the JSON representation of a position. Monetary
// fields are decimal strings.
type positionResponse struct {
	ID                int       `json:"id"`
	Version           int       `json:"version"`
	Symbol            string    `json:"symbol"`
	OpenDate          time.Time `json:"open_date"`
	Side              string    `json:"side"`
	TotalBuyQuantity  int64     `json:"total_buy_quantity"`
	TotalBuyValue     string    `json:"total_buy_value"`
	TotalSellQuantity int64     `json:"total_sell_quantity"`
	TotalSellValue    string    `json:"total_sell_value"`
	TotalNetValue     string    `json:"total_net_value"`
	OpenQuantity      int64     `json:"open_quantity"`
	IsOpen            bool      `json:"is_open"`
}

func toPositionResponse(p *domain.TradePosition) positionResponse {
	return positionResponse{
		ID:                p.ID,
		Version:           p.Version,
		Symbol:            p.Contract.Symbol,
		OpenDate:          p.OpenDate,
		Side:              string(p.Side),
		TotalBuyQuantity:  p.TotalBuyQuantity,
		TotalBuyValue:     p.TotalBuyValue.String(),
		TotalSellQuantity: p.TotalSellQuantity,
		TotalSellValue:    p.TotalSellValue.String(),
		TotalNetValue:     p.TotalNetValue.String(),
		OpenQuantity:      p.OpenQuantity,
		IsOpen:            p.IsOpen,
	}
}

// GetOpenPosition handles GET /positions/{symbol}.
func (h *PositionHandler) GetOpenPosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	position, err := h.positionSvc.OpenPosition(symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPositionResponse(position))
}

// ListOrders handles GET /positions/id/{position_id}/orders.
func (h *PositionHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "position_id"))
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "position_id must be a positive integer")
		return
	}

	orders, err := h.positionSvc.OrdersForPosition(id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": resp})
}
