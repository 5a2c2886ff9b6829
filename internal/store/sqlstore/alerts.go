package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that AlertRepository implements store.AlertRepository
var _ store.AlertRepository = (*AlertRepository)(nil)

const alertColumns = `alert_id, account_id, symbol, target_price, alert_condition, active, triggered, created_at, triggered_at`

// AlertRepository is the SQL implementation of store.AlertRepository.
type AlertRepository struct {
	s *Store
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var (
		a           domain.Alert
		triggeredAt sql.NullTime
	)
	err := row.Scan(&a.AlertID, &a.AccountID, &a.Symbol, &a.TargetPrice, &a.Condition, &a.Active, &a.Triggered,
		&a.CreatedAt, &triggeredAt)
	if err != nil {
		return nil, err
	}
	if triggeredAt.Valid {
		t := triggeredAt.Time
		a.TriggeredAt = &t
	}
	return &a, nil
}

// Create inserts an alert.
func (r *AlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	var triggeredAt sql.NullTime
	if a.TriggeredAt != nil {
		triggeredAt = sql.NullTime{Time: *a.TriggeredAt, Valid: true}
	}
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`INSERT INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.AlertID, a.AccountID, a.Symbol, a.TargetPrice, string(a.Condition), a.Active, a.Triggered, a.CreatedAt, triggeredAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Get loads one alert.
func (r *AlertRepository) Get(ctx context.Context, id string) (*domain.Alert, error) {
	a, err := scanAlert(r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+alertColumns+` FROM alerts WHERE alert_id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// ListByAccount returns the account's alerts newest first.
func (r *AlertRepository) ListByAccount(ctx context.Context, accountID string, activeOnly bool) ([]*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE account_id = ?`
	if activeOnly {
		query += ` AND active = TRUE AND triggered = FALSE`
	}
	return r.query(ctx, query+` ORDER BY created_at DESC, alert_id DESC`, accountID)
}

// ListPending returns the account's active, untriggered alerts.
func (r *AlertRepository) ListPending(ctx context.Context, accountID string) ([]*domain.Alert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE account_id = ? AND active = TRUE AND triggered = FALSE ORDER BY created_at, alert_id`, accountID)
}

func (r *AlertRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Alert, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// SetActive toggles the active flag.
func (r *AlertRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Alert, error) {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`UPDATE alerts SET active = ? WHERE alert_id = ?`), active, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrAlertNotFound
	}
	return r.Get(ctx, id)
}

// MarkTriggered runs one conditional update per alert inside a single
// transaction. An update that matches no row lost the race to another
// evaluator and is left out of the result.
func (r *AlertRepository) MarkTriggered(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	changed := make([]string, 0, len(ids))
	if len(ids) == 0 {
		return changed, nil
	}

	query := r.s.rebind(`UPDATE alerts SET triggered = TRUE, triggered_at = ?
		WHERE alert_id = ? AND active = TRUE AND triggered = FALSE`)

	err := r.s.txm.WithTransaction(ctx, func(tx *sql.Tx) error {
		changed = changed[:0]
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, query, at, id)
			if err != nil {
				return fmt.Errorf("failed to mark alert %s triggered: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n == 1 {
				changed = append(changed, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// Delete removes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM alerts WHERE alert_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}
