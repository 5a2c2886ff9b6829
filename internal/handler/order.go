package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// placeOrderRequest is the JSON request body for POST /accounts/{account_id}/orders.
type placeOrderRequest struct {
	Symbol     string   `json:"symbol" validate:"required"`
	Side       string   `json:"side" validate:"required"`
	Type       string   `json:"type" validate:"required"`
	Quantity   int64    `json:"quantity"`
	LimitPrice *float64 `json:"limit_price"`
}

// orderResponse is the JSON response for a single order. Nullable fields
// use pointers and are always present.
type orderResponse struct {
	OrderID        string   `json:"order_id"`
	AccountID      string   `json:"account_id"`
	Symbol         string   `json:"symbol"`
	Type           string   `json:"type"`
	Side           string   `json:"side"`
	Quantity       int64    `json:"quantity"`
	LimitPrice     *float64 `json:"limit_price"`
	Status         string   `json:"status"`
	FilledQuantity int64    `json:"filled_quantity"`
	FilledPrice    *float64 `json:"filled_price"`
	Total          *float64 `json:"total"`
	RejectReason   *string  `json:"reject_reason"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// rejectedOrderResponse carries the persisted rejected order alongside the
// standard error fields.
type rejectedOrderResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

// orderListResponse is the JSON response for GET /accounts/{account_id}/orders.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Total  int             `json:"total"`
}

// PlaceOrder handles POST /accounts/{account_id}/orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := service.ValidateStruct(req); err != nil {
		writeServiceError(w, err)
		return
	}

	order, err := h.orderSvc.PlaceOrder(r.Context(), chi.URLParam(r, "account_id"), service.PlaceOrderRequest{
		Symbol:     req.Symbol,
		Side:       domain.OrderSide(req.Side),
		Type:       domain.OrderType(req.Type),
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		if order != nil && order.Status == domain.OrderStatusRejected {
			writeRejectedOrder(w, order, err)
			return
		}
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /accounts/{account_id}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /accounts/{account_id}/orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.CancelOrder(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "order_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// ListOrders handles GET /accounts/{account_id}/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	page, ok := intQuery(w, r, "page", 1)
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit", 20)
	if !ok {
		return
	}

	orders, total, err := h.orderSvc.ListOrders(r.Context(), chi.URLParam(r, "account_id"), status, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := orderListResponse{
		Orders: make([]orderResponse, len(orders)),
		Page:   page,
		Limit:  limit,
		Total:  total,
	}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// intQuery parses an integer query parameter, writing a 400 when it is not
// a number.
func intQuery(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", name+" must be a valid integer")
		return 0, false
	}
	return n, true
}

func writeRejectedOrder(w http.ResponseWriter, o *domain.Order, err error) {
	code, msg := "insufficient_funds", "Insufficient cash balance"
	switch {
	case errors.Is(err, domain.ErrInsufficientShares):
		code, msg = "insufficient_shares", "Insufficient shares"
	case errors.Is(err, domain.ErrAmountOutOfRange):
		code, msg = "amount_out_of_range", "Amount exceeds the supported range"
	}
	WriteJSON(w, http.StatusUnprocessableEntity, rejectedOrderResponse{
		Error:   code,
		Message: msg,
		Order:   buildOrderResponse(o),
	})
}

func buildOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:        o.OrderID,
		AccountID:      o.AccountID,
		Symbol:         o.Symbol,
		Type:           string(o.Type),
		Side:           string(o.Side),
		Quantity:       o.Quantity,
		LimitPrice:     dollarsOrNil(o.LimitPrice),
		Status:         string(o.Status),
		FilledQuantity: o.FilledQuantity,
		FilledPrice:    dollarsOrNil(o.FilledPrice),
		CreatedAt:      formatTime(o.CreatedAt),
		UpdatedAt:      formatTime(o.UpdatedAt),
	}
	if o.Status == domain.OrderStatusFilled {
		resp.Total = dollarsOrNil(o.FilledQuantity * o.FilledPrice)
	}
	if o.RejectReason != "" {
		reason := o.RejectReason
		resp.RejectReason = &reason
	}
	return resp
}
