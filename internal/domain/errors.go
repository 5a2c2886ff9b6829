package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountAlreadyExists   = errors.New("account_already_exists")
	ErrAccountNotFound        = errors.New("account_not_found")
	ErrInstrumentNotFound     = errors.New("instrument_not_found")
	ErrHoldingNotFound        = errors.New("holding_not_found")
	ErrOrderNotFound          = errors.New("order_not_found")
	ErrAlertNotFound          = errors.New("alert_not_found")
	ErrWatchlistItemNotFound  = errors.New("watchlist_item_not_found")
	ErrAlreadyWatched         = errors.New("already_watched")
	ErrWebhookNotFound        = errors.New("webhook_not_found")
	ErrInsufficientFunds      = errors.New("insufficient_funds")
	ErrInsufficientShares     = errors.New("insufficient_shares")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrAmountOutOfRange       = errors.New("amount_out_of_range")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInstrumentNotFound),
		errors.Is(err, ErrHoldingNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrAlertNotFound),
		errors.Is(err, ErrWatchlistItemNotFound),
		errors.Is(err, ErrWebhookNotFound):
		return true
	}
	return false
}
