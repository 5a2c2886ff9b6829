package domain

import "time"

// Account is a brokerage customer with a cash balance.
type Account struct {
	AccountID   string
	Username    string
	Email       string
	FullName    string
	CashBalance int64 // cents, never negative
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanAfford reports whether the account holds at least cost cents.
func (a *Account) CanAfford(cost int64) bool {
	return a.CashBalance >= cost
}
