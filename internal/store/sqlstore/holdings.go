package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that HoldingRepository implements store.HoldingRepository
var _ store.HoldingRepository = (*HoldingRepository)(nil)

const holdingColumns = `account_id, symbol, quantity, average_cost, created_at, updated_at`

// HoldingRepository is the SQL implementation of store.HoldingRepository.
type HoldingRepository struct {
	s *Store
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	if err := row.Scan(&h.AccountID, &h.Symbol, &h.Quantity, &h.AverageCost, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListByAccount returns the account's holdings ordered by symbol.
func (r *HoldingRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	return listHoldings(ctx, r.s, r.s.db, accountID)
}

func listHoldings(ctx context.Context, s *Store, q queryer, accountID string) ([]*domain.Holding, error) {
	rows, err := q.QueryContext(ctx,
		s.rebind(`SELECT `+holdingColumns+` FROM holdings WHERE account_id = ? ORDER BY symbol`), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// Get loads one holding.
func (r *HoldingRepository) Get(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	return getHolding(ctx, r.s, r.s.db, accountID, symbol)
}

func getHolding(ctx context.Context, s *Store, q queryer, accountID, symbol string) (*domain.Holding, error) {
	h, err := scanHolding(q.QueryRowContext(ctx,
		s.rebind(`SELECT `+holdingColumns+` FROM holdings WHERE account_id = ? AND symbol = ?`), accountID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

func saveHolding(ctx context.Context, s *Store, q queryer, h *domain.Holding) error {
	if h.Quantity == 0 {
		_, err := q.ExecContext(ctx, s.rebind(`DELETE FROM holdings WHERE account_id = ? AND symbol = ?`), h.AccountID, h.Symbol)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	_, err := q.ExecContext(ctx, s.rebind(`INSERT INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			updated_at = excluded.updated_at`),
		h.AccountID, h.Symbol, h.Quantity, h.AverageCost.String(), h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}
