package sqlstore

import (
	"context"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that WatchlistRepository implements store.WatchlistRepository
var _ store.WatchlistRepository = (*WatchlistRepository)(nil)

// WatchlistRepository is the SQL implementation of store.WatchlistRepository.
type WatchlistRepository struct {
	s *Store
}

// Add inserts an item; the (account, symbol) primary key rejects duplicates.
func (r *WatchlistRepository) Add(ctx context.Context, item *domain.WatchlistItem) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`INSERT INTO watchlist_items (account_id, symbol, added_at) VALUES (?, ?, ?)`),
		item.AccountID, item.Symbol, item.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyWatched
		}
		return fmt.Errorf("failed to add watchlist item: %w", err)
	}
	return nil
}

// List returns the account's items newest first.
func (r *WatchlistRepository) List(ctx context.Context, accountID string) ([]*domain.WatchlistItem, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(`SELECT account_id, symbol, added_at FROM watchlist_items
		WHERE account_id = ? ORDER BY added_at DESC, symbol`), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.WatchlistItem, 0)
	for rows.Next() {
		var item domain.WatchlistItem
		if err := rows.Scan(&item.AccountID, &item.Symbol, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}

// Remove deletes one item.
func (r *WatchlistRepository) Remove(ctx context.Context, accountID, symbol string) error {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM watchlist_items WHERE account_id = ? AND symbol = ?`), accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrWatchlistItemNotFound
	}
	return nil
}
