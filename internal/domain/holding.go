package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an account's position in a single instrument.
type Holding struct {
	AccountID   string
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal // cents per share, unrounded
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyBuy adds qty shares bought at price cents and recomputes the
// weighted average cost:
//
//	new_avg = (old_qty*old_avg + qty*price) / (old_qty + qty)
func (h *Holding) ApplyBuy(qty, price int64) {
	oldQty := decimal.NewFromInt(h.Quantity)
	total := oldQty.Mul(h.AverageCost).Add(decimal.NewFromInt(qty).Mul(decimal.NewFromInt(price)))
	h.Quantity += qty
	h.AverageCost = total.Div(decimal.NewFromInt(h.Quantity))
}

// ApplySell removes qty shares. The average cost is unchanged.
// It returns ErrInsufficientShares if the position is too small.
func (h *Holding) ApplySell(qty int64) error {
	if h.Quantity < qty {
		return ErrInsufficientShares
	}
	h.Quantity -= qty
	return nil
}

// CostBasis returns quantity × average cost in cents.
func (h *Holding) CostBasis() decimal.Decimal {
	return decimal.NewFromInt(h.Quantity).Mul(h.AverageCost)
}
