package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/invoice-intake/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS deliveries (
	id             TEXT PRIMARY KEY,
	sink           TEXT NOT NULL,
	status         TEXT NOT NULL,
	target         TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	vendor_name    TEXT NOT NULL DEFAULT '',
	status_code    INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	error_type     TEXT NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_deliveries_sink ON deliveries(sink);
CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordDelivery inserts d, assigning an ID and timestamp when unset.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, d *model.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, sink, status, target, invoice_number, vendor_name, status_code, error, error_type, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Sink), string(d.Status), d.Target, d.InvoiceNumber, d.VendorName,
		d.StatusCode, d.Error, d.ErrorType, d.DurationMs, d.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert delivery %s", d.ID)
}

func (s *SQLiteStore) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]model.Delivery, error) {
	query := `SELECT id, sink, status, target, invoice_number, vendor_name, status_code, error, error_type, duration_ms, created_at
	          FROM deliveries WHERE 1=1`
	var args []any

	if filter.Sink != "" {
		query += ` AND sink = ?`
		args = append(args, string(filter.Sink))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deliveries")
	}
	defer rows.Close()

	var out []model.Delivery
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.ID, &d.Sink, &d.Status, &d.Target, &d.InvoiceNumber, &d.VendorName,
			&d.StatusCode, &d.Error, &d.ErrorType, &d.DurationMs, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan delivery")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list deliveries iterate")
}
