package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that WebhookRepository implements store.WebhookRepository
var _ store.WebhookRepository = (*WebhookRepository)(nil)

const webhookColumns = `webhook_id, account_id, event, url, created_at, updated_at`

// WebhookRepository is the SQL implementation of store.WebhookRepository.
type WebhookRepository struct {
	s *Store
}

func scanWebhook(row rowScanner) (*domain.Webhook, error) {
	var w domain.Webhook
	if err := row.Scan(&w.WebhookID, &w.AccountID, &w.Event, &w.URL, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Upsert keeps the existing webhook_id for an (account, event) pair and
// only rewrites the URL when it changed.
func (r *WebhookRepository) Upsert(ctx context.Context, w *domain.Webhook) (*domain.Webhook, bool, error) {
	var (
		stored  *domain.Webhook
		created bool
	)
	err := r.s.txm.WithTransaction(ctx, func(tx *sql.Tx) error {
		existing, err := r.getByAccountEvent(ctx, tx, w.AccountID, w.Event)
		if err != nil {
			return err
		}

		if existing == nil {
			_, err := tx.ExecContext(ctx, r.s.rebind(`INSERT INTO webhooks (`+webhookColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
				w.WebhookID, w.AccountID, w.Event, w.URL, w.CreatedAt, w.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert webhook: %w", err)
			}
			c := *w
			stored, created = &c, true
			return nil
		}

		if existing.URL != w.URL {
			_, err := tx.ExecContext(ctx, r.s.rebind(`UPDATE webhooks SET url = ?, updated_at = ? WHERE webhook_id = ?`),
				w.URL, w.UpdatedAt, existing.WebhookID)
			if err != nil {
				return fmt.Errorf("failed to update webhook: %w", err)
			}
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		stored = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Get loads one webhook.
func (r *WebhookRepository) Get(ctx context.Context, id string) (*domain.Webhook, error) {
	w, err := scanWebhook(r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE webhook_id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

// ListByAccount returns the account's subscriptions ordered by event.
func (r *WebhookRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Webhook, error) {
	rows, err := r.s.db.QueryContext(ctx,
		r.s.rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE account_id = ? ORDER BY event`), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Webhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetByAccountEvent returns nil, nil when there is no subscription.
func (r *WebhookRepository) GetByAccountEvent(ctx context.Context, accountID, event string) (*domain.Webhook, error) {
	return r.getByAccountEvent(ctx, r.s.db, accountID, event)
}

func (r *WebhookRepository) getByAccountEvent(ctx context.Context, q queryer, accountID, event string) (*domain.Webhook, error) {
	w, err := scanWebhook(q.QueryRowContext(ctx,
		r.s.rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE account_id = ? AND event = ?`), accountID, event))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

// Delete removes a webhook.
func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM webhooks WHERE webhook_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrWebhookNotFound
	}
	return nil
}
