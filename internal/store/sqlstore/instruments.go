package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that InstrumentRepository implements store.InstrumentRepository
var _ store.InstrumentRepository = (*InstrumentRepository)(nil)

const instrumentColumns = `symbol, name, sector, market_cap, current_price, previous_close, day_high, day_low, volume, updated_at`

// InstrumentRepository is the SQL implementation of store.InstrumentRepository.
type InstrumentRepository struct {
	s *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row rowScanner) (*domain.Instrument, error) {
	var i domain.Instrument
	err := row.Scan(&i.Symbol, &i.Name, &i.Sector, &i.MarketCap, &i.CurrentPrice, &i.PreviousClose,
		&i.DayHigh, &i.DayLow, &i.Volume, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Upsert inserts or replaces an instrument.
func (r *InstrumentRepository) Upsert(ctx context.Context, i *domain.Instrument) error {
	return r.upsert(ctx, r.s.db, i)
}

func (r *InstrumentRepository) upsert(ctx context.Context, q queryer, i *domain.Instrument) error {
	_, err := q.ExecContext(ctx, r.s.rebind(`INSERT INTO instruments (`+instrumentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			market_cap = excluded.market_cap,
			current_price = excluded.current_price,
			previous_close = excluded.previous_close,
			day_high = excluded.day_high,
			day_low = excluded.day_low,
			volume = excluded.volume,
			updated_at = excluded.updated_at`),
		i.Symbol, i.Name, i.Sector, i.MarketCap, i.CurrentPrice, i.PreviousClose, i.DayHigh, i.DayLow, i.Volume, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", i.Symbol, err)
	}
	return nil
}

// Get loads one instrument.
func (r *InstrumentRepository) Get(ctx context.Context, symbol string) (*domain.Instrument, error) {
	return r.get(ctx, r.s.db, symbol, "")
}

func (r *InstrumentRepository) get(ctx context.Context, q queryer, symbol, suffix string) (*domain.Instrument, error) {
	i, err := scanInstrument(q.QueryRowContext(ctx, r.s.rebind(`SELECT `+instrumentColumns+` FROM instruments WHERE symbol = ?`+suffix), symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInstrumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	return i, nil
}

// List returns all instruments ordered by symbol.
func (r *InstrumentRepository) List(ctx context.Context) ([]*domain.Instrument, error) {
	return r.query(ctx, `SELECT `+instrumentColumns+` FROM instruments ORDER BY symbol`)
}

// Search matches symbol or name case-insensitively.
func (r *InstrumentRepository) Search(ctx context.Context, q string) ([]*domain.Instrument, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return r.query(ctx, `SELECT `+instrumentColumns+` FROM instruments
		WHERE LOWER(symbol) LIKE ? OR LOWER(name) LIKE ? ORDER BY symbol`, pattern, pattern)
}

func (r *InstrumentRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Instrument, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Instrument, 0)
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

// Prices fetches current prices for all symbols in a single query.
func (r *InstrumentRepository) Prices(ctx context.Context, symbols []string) (map[string]int64, error) {
	prices := make(map[string]int64, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	rows, err := r.s.db.QueryContext(ctx,
		r.s.rebind(`SELECT symbol, current_price FROM instruments WHERE symbol IN (`+placeholders(len(symbols))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			symbol string
			price  int64
		)
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

// Update applies fn to the locked row inside a transaction.
func (r *InstrumentRepository) Update(ctx context.Context, symbol string, fn func(*domain.Instrument) error) (*domain.Instrument, error) {
	var out *domain.Instrument
	err := r.s.txm.WithTransaction(ctx, func(tx *sql.Tx) error {
		i, err := r.get(ctx, tx, symbol, r.s.forUpdate())
		if err != nil {
			return err
		}
		if err := fn(i); err != nil {
			return err
		}
		if err := r.upsert(ctx, tx, i); err != nil {
			return err
		}
		out = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
