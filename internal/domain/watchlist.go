package domain

import "time"

// WatchlistItem is a symbol an account follows without holding it.
type WatchlistItem struct {
	AccountID string
	Symbol    string
	AddedAt   time.Time
}
