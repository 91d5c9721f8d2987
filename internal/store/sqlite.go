package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "kraken-trader/internal/errors"
	"kraken-trader/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS positions (
	symbol      TEXT PRIMARY KEY,
	size        REAL,
	entry_price REAL,
	updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS orders (
	order_id   TEXT PRIMARY KEY,
	symbol     TEXT,
	side       TEXT,
	size       REAL,
	status     TEXT,
	created_at TEXT
);
`

// SQLiteStore persists state in a local SQLite database running in WAL
// mode.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrDatabaseError, path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", apperrors.ErrDatabaseError, err)
	}

	logger.Info().Str("path", path).Msg("State database initialized (WAL mode)")
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetValue upserts a key-value pair.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", apperrors.ErrDatabaseError, key, err)
	}
	return nil
}

// GetValue reads a key-value pair.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: key %s", apperrors.ErrDataNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", apperrors.ErrDatabaseError, key, err)
	}
	return value, nil
}

// UpdatePosition upserts a position snapshot.
func (s *SQLiteStore) UpdatePosition(ctx context.Context, symbol string, size, entryPrice float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (symbol, size, entry_price, updated_at)
		VALUES (?, ?, ?, ?)`,
		symbol, size, entryPrice, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: update position %s: %v", apperrors.ErrDatabaseError, symbol, err)
	}
	return nil
}

// GetPosition reads a position snapshot.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (models.PositionRecord, error) {
	var rec models.PositionRecord
	var updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, size, entry_price, updated_at FROM positions WHERE symbol = ?`,
		symbol).Scan(&rec.Symbol, &rec.Size, &rec.EntryPrice, &updated)
	if err == sql.ErrNoRows {
		return rec, fmt.Errorf("%w: position %s", apperrors.ErrDataNotFound, symbol)
	}
	if err != nil {
		return rec, fmt.Errorf("%w: get position %s: %v", apperrors.ErrDatabaseError, symbol, err)
	}
	if t, perr := time.Parse(time.RFC3339, updated); perr == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

// SaveOrder upserts an order row. Status defaults to OPEN.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order models.OrderRecord) error {
	status := order.Status
	if status == "" {
		status = "OPEN"
	}
	created := order.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (order_id, symbol, side, size, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.Symbol, order.Side, order.Size, status,
		created.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: save order %s: %v", apperrors.ErrDatabaseError, order.OrderID, err)
	}
	return nil
}

// ActiveOrders lists orders still marked OPEN.
func (s *SQLiteStore) ActiveOrders(ctx context.Context) ([]models.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, symbol, side, size, status, created_at
		FROM orders WHERE status = 'OPEN'`)
	if err != nil {
		return nil, fmt.Errorf("%w: list active orders: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var orders []models.OrderRecord
	for rows.Next() {
		var rec models.OrderRecord
		var created string
		if err := rows.Scan(&rec.OrderID, &rec.Symbol, &rec.Side, &rec.Size,
			&rec.Status, &created); err != nil {
			return nil, fmt.Errorf("%w: scan order: %v", apperrors.ErrDatabaseError, err)
		}
		if t, perr := time.Parse(time.RFC3339, created); perr == nil {
			rec.CreatedAt = t
		}
		orders = append(orders, rec)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus sets the status of one order.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE order_id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("%w: update order %s: %v", apperrors.ErrDatabaseError, orderID, err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
