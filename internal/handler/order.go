package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/tradecore/internal/domain"
	"github.com/efreitasn/tradecore/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler exposes the order mutation and query surface over HTTP.
// Broker wire shapes are mapped into domain values here; nothing past
// this boundary reads broker field names.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// createOrderRequest is the JSON body for order creation.
type createOrderRequest struct {
	OrderKey   int    `json:"order_key,omitempty"`
	StrategyID int    `json:"strategy_id"`
	Symbol     string `json:"symbol"`
	SecType    string `json:"sec_type,omitempty"`
	Exchange   string `json:"exchange,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Action     string `json:"action"`
	Type       string `json:"type"`
	Quantity   int64  `json:"quantity"`
	LimitPrice string `json:"limit_price,omitempty"`
	AuxPrice   string `json:"aux_price,omitempty"`
	OCAGroup   string `json:"oca_group,omitempty"`
	OCAType    int    `json:"oca_type,omitempty"`
}

// executionReportRequest is the JSON body for a broker execution report.
type executionReportRequest struct {
	ExecID      string `json:"exec_id"`
	Exchange    string `json:"exchange"`
	Side        string `json:"side"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	CumQuantity int64  `json:"cum_quantity"`
	AvgPrice    string `json:"avg_price,omitempty"`
	Time        string `json:"time,omitempty"` // RFC 3339; defaults to now
}

// orderResponse is the JSON representation of an order. Monetary fields
// are decimal strings.
type orderResponse struct {
	ID                 int              `json:"id"`
	Version            int              `json:"version"`
	OrderKey           int              `json:"order_key"`
	StrategyID         int              `json:"strategy_id"`
	Symbol             string           `json:"symbol"`
	Action             string           `json:"action"`
	Type               string           `json:"type"`
	Quantity           int64            `json:"quantity"`
	LimitPrice         *string          `json:"limit_price,omitempty"`
	AuxPrice           *string          `json:"aux_price,omitempty"`
	Status             string           `json:"status"`
	OCAGroup           string           `json:"oca_group,omitempty"`
	OCAType            int              `json:"oca_type,omitempty"`
	PositionID         int              `json:"position_id,omitempty"`
	FilledQuantity     int64            `json:"filled_quantity"`
	AverageFilledPrice string           `json:"average_filled_price"`
	FilledDate         *time.Time       `json:"filled_date,omitempty"`
	Commission         string           `json:"commission"`
	CreatedAt          time.Time        `json:"created_at"`
	Fills              []fillResponse   `json:"fills,omitempty"`
}

type fillResponse struct {
	ExecID      string    `json:"exec_id"`
	Exchange    string    `json:"exchange"`
	Side        string    `json:"side"`
	Quantity    int64     `json:"quantity"`
	Price       string    `json:"price"`
	CumQuantity int64     `json:"cum_quantity"`
	Time        time.Time `json:"time"`
}

func toOrderResponse(o *domain.TradeOrder) orderResponse {
	resp := orderResponse{
		ID:                 o.ID,
		Version:            o.Version,
		OrderKey:           o.OrderKey,
		StrategyID:         o.StrategyID,
		Symbol:             o.Contract.Symbol,
		Action:             string(o.Action),
		Type:               string(o.Type),
		Quantity:           o.Quantity,
		Status:             string(o.Status),
		OCAGroup:           o.OCAGroup,
		OCAType:            o.OCAType,
		PositionID:         o.PositionID,
		FilledQuantity:     o.FilledQuantity,
		AverageFilledPrice: o.AverageFilledPrice.String(),
		FilledDate:         o.FilledDate,
		Commission:         o.Commission.String(),
		CreatedAt:          o.CreatedAt,
	}
	if o.LimitPrice != nil {
		s := o.LimitPrice.String()
		resp.LimitPrice = &s
	}
	if o.AuxPrice != nil {
		s := o.AuxPrice.String()
		resp.AuxPrice = &s
	}
	for _, f := range o.Fills.Fills() {
		resp.Fills = append(resp.Fills, fillResponse{
			ExecID:      f.ExecID,
			Exchange:    f.Exchange,
			Side:        string(f.Side),
			Quantity:    f.Quantity,
			Price:       f.Price.String(),
			CumQuantity: f.CumQuantity,
			Time:        f.Time,
		})
	}
	return resp
}

// CreateOrder handles POST /orders.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	svcReq := service.CreateOrderRequest{
		OrderKey:   req.OrderKey,
		StrategyID: req.StrategyID,
		Contract: domain.Contract{
			Symbol:   req.Symbol,
			SecType:  domain.SecType(req.SecType),
			Exchange: req.Exchange,
			Currency: req.Currency,
		},
		Action:   domain.Action(req.Action),
		Type:     domain.OrderType(req.Type),
		Quantity: req.Quantity,
		OCAGroup: req.OCAGroup,
		OCAType:  req.OCAType,
	}
	if req.LimitPrice != "" {
		p, err := domain.ParsePrice(req.LimitPrice)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		svcReq.LimitPrice = &p
	}
	if req.AuxPrice != "" {
		p, err := domain.ParsePrice(req.AuxPrice)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		svcReq.AuxPrice = &p
	}

	order, err := h.orderSvc.CreateOrder(svcReq)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toOrderResponse(order))
}

// SubmitOrder handles POST /orders/{order_key}/submit.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := orderKeyParam(w, r)
	if !ok {
		return
	}
	order, err := h.orderSvc.SubmitOrder(key)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// ApplyFill handles POST /orders/{order_key}/fills.
func (h *OrderHandler) ApplyFill(w http.ResponseWriter, r *http.Request) {
	key, ok := orderKeyParam(w, r)
	if !ok {
		return
	}

	var req executionReportRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ExecID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "exec_id is required")
		return
	}
	if req.Quantity <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity must be a positive integer")
		return
	}

	price, err := domain.ParsePrice(req.Price)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	avgPrice := price
	if req.AvgPrice != "" {
		avgPrice, err = domain.ParsePrice(req.AvgPrice)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
	}

	fillTime := time.Now()
	if req.Time != "" {
		fillTime, err = time.Parse(time.RFC3339, req.Time)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "time must be RFC 3339")
			return
		}
	}

	fill := domain.TradeOrderfill{
		ExecID:      req.ExecID,
		Exchange:    req.Exchange,
		Side:        domain.Action(req.Side),
		Quantity:    req.Quantity,
		Price:       price,
		CumQuantity: req.CumQuantity,
		AvgPrice:    avgPrice,
		Time:        fillTime,
	}

	order, err := h.orderSvc.ApplyExecution(key, fill)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// CancelOrder handles DELETE /orders/{order_key}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := orderKeyParam(w, r)
	if !ok {
		return
	}
	order, err := h.orderSvc.CancelOrder(key)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetOrder handles GET /orders/{order_key}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := orderKeyParam(w, r)
	if !ok {
		return
	}
	order, err := h.orderSvc.GetOrder(key)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListOCAGroup handles GET /oca/{group}.
func (h *OrderHandler) ListOCAGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	ocaType := 0
	if v := r.URL.Query().Get("oca_type"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "oca_type must be an integer")
			return
		}
		ocaType = n
	}

	orders := h.orderSvc.OrdersByOCAGroup(group, ocaType)
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// orderKeyParam parses the order_key URL parameter, writing a 400 on
// failure.
func orderKeyParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	key, err := strconv.Atoi(chi.URLParam(r, "order_key"))
	if err != nil || key <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_key must be a positive integer")
		return 0, false
	}
	return key, true
}
