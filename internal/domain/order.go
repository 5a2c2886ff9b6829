package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatuses lists all order status values.
var ValidOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusFilled:    true,
	OrderStatusRejected:  true,
	OrderStatusCancelled: true,
}

// Order is an account's instruction to buy or sell an instrument.
// Intent fields are fixed at creation; fulfillment fields move through
// pending → filled | rejected | cancelled.
type Order struct {
	OrderID    string
	AccountID  string
	Symbol     string
	Type       OrderType
	Side       OrderSide
	Quantity   int64
	LimitPrice int64 // cents, 0 for market orders

	Status         OrderStatus
	FilledQuantity int64
	FilledPrice    int64 // cents, 0 until filled
	RejectReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the order can no longer change.
func (o *Order) IsTerminal() bool {
	return o.Status != OrderStatusPending
}

// Reachable reports whether a limit order can execute at price.
// Market orders are always reachable.
func (o *Order) Reachable(price int64) bool {
	if o.Type == OrderTypeMarket {
		return true
	}
	if o.Side == OrderSideBuy {
		return o.LimitPrice >= price
	}
	return o.LimitPrice <= price
}

// Fill marks the order as completely filled at price.
func (o *Order) Fill(price int64, at time.Time) error {
	if o.IsTerminal() {
		return ErrInvalidStateTransition
	}
	o.Status = OrderStatusFilled
	o.FilledQuantity = o.Quantity
	o.FilledPrice = price
	o.UpdatedAt = at
	return nil
}

// Reject marks the order as rejected with the given reason.
func (o *Order) Reject(reason string, at time.Time) error {
	if o.IsTerminal() {
		return ErrInvalidStateTransition
	}
	o.Status = OrderStatusRejected
	o.RejectReason = reason
	o.UpdatedAt = at
	return nil
}

// Cancel moves a pending order to cancelled.
func (o *Order) Cancel(at time.Time) error {
	if o.IsTerminal() {
		return ErrInvalidStateTransition
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = at
	return nil
}
