package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// TxManager provides transaction lifecycle management across repositories.
//
// Usage:
//
//	err := txm.WithTransaction(ctx, func(tx *sql.Tx) error {
//	    if _, err := tx.ExecContext(ctx, debit, amount, accountID); err != nil {
//	        return err // triggers rollback
//	    }
//	    _, err := tx.ExecContext(ctx, insertOrder, ...)
//	    return err
//	})
type TxManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTxManager creates a new transaction manager.
// Returns an error if the database connection is nil.
func NewTxManager(db *sql.DB, logger *slog.Logger) (*TxManager, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{db: db, logger: logger}, nil
}

// WithTransaction executes fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
// If fn succeeds, the transaction is committed.
//
// The transaction is automatically rolled back if:
//   - fn returns an error
//   - fn panics (panic is re-raised after rollback)
//   - commit fails
func (m *TxManager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.logger.Error("failed to rollback transaction after panic", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed to rollback transaction", "error", rbErr, "originalError", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
