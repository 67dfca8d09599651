package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"listingmatch/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  seq INTEGER PRIMARY KEY,
  productName TEXT NOT NULL,
  manufacturer TEXT NOT NULL,
  family TEXT,
  model TEXT NOT NULL,
  announcedDate TEXT,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(productName, seq);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  productName TEXT NOT NULL,
  productRank INTEGER NOT NULL,
  listingSeq INTEGER NOT NULL,
  title TEXT NOT NULL,
  manufacturer TEXT,
  currency TEXT,
  price TEXT NOT NULL,
  UNIQUE(runId, listingSeq),
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(runId, productName);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceProducts swaps the stored catalogue for products, keeping their order.
// Every product is stored, repeated product names included; which of them win
// a (manufacturer, family, model) collision is left to the catalogue build.
func (d *DB) ReplaceProducts(ctx context.Context, products []*internal.Product) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO products (productName, seq, manufacturer, family, model, announcedDate, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ProductName, i, p.Manufacturer, p.Family, p.Model, p.AnnouncedDate); err != nil {
			return fmt.Errorf("store product %q: %w", p.ProductName, err)
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts(ctx context.Context) ([]*internal.Product, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT productName, manufacturer, family, model, announcedDate
FROM products ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*internal.Product
	for rows.Next() {
		var p internal.Product
		var announced sql.NullString
		if err := rows.Scan(&p.ProductName, &p.Manufacturer, &p.Family, &p.Model, &announced); err != nil {
			return nil, err
		}
		p.AnnouncedDate = announced.String
		out = append(out, &p)
	}

	return out, rows.Err()
}

func (d *DB) InsertRun(ctx context.Context, run internal.RunRow, result *internal.MatchResult, seqOf map[*internal.Listing]int) error {
	timingsJSON, _ := json.Marshal(run.Timings)
	countsJSON, _ := json.Marshal(run.Counts)

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, source, timingsJson, countsJson) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, string(timingsJSON), string(countsJSON)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO matches (runId, productName, productRank, listingSeq, title, manufacturer, currency, price)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for rank, name := range result.Order {
		for _, l := range result.Listings[name] {
			if _, err := stmt.ExecContext(ctx, run.ID, name, rank, seqOf[l], l.Title, l.Manufacturer, l.Currency, l.Price); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (d *DB) GetRun(ctx context.Context, id string) (*internal.RunRow, error) {
	var row internal.RunRow
	var timingsJSON, countsJSON string
	err := d.conn.QueryRowContext(ctx, `SELECT id, source, timingsJson, countsJson, createdAt FROM runs WHERE id = ?`, id).
		Scan(&row.ID, &row.Source, &timingsJSON, &countsJSON, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
	_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
	return &row, nil
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, source, timingsJson, countsJson, createdAt FROM runs ORDER BY createdAt DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.Source, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows returns a run's matches grouped by product in output order,
// listings in input order.
func (d *DB) GetExportRows(ctx context.Context, runID string) ([]internal.MatchExportRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT
  m.listingSeq,
  m.productName,
  COALESCE(p.manufacturer, ''),
  p.family,
  COALESCE(p.model, ''),
  m.title,
  COALESCE(m.manufacturer, ''),
  COALESCE(m.currency, ''),
  m.price
FROM matches m
LEFT JOIN products p ON p.seq = (SELECT MIN(seq) FROM products WHERE productName = m.productName)
WHERE m.runId = ?
ORDER BY m.productRank ASC, m.listingSeq ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MatchExportRow
	for rows.Next() {
		var row internal.MatchExportRow
		if err := rows.Scan(
			&row.ListingSeq,
			&row.ProductName,
			&row.Manufacturer,
			&row.Family,
			&row.Model,
			&row.Title,
			&row.ListingManu,
			&row.Currency,
			&row.Price,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func (d *DB) MustRun(ctx context.Context, id string) (internal.RunRow, error) {
	row, err := d.GetRun(ctx, id)
	if err != nil {
		return internal.RunRow{}, err
	}
	if row == nil {
		return internal.RunRow{}, fmt.Errorf("run not found: id=%s", id)
	}
	return *row, nil
}
