package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"btc-metrics/internal/domain"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateTimestamp is returned when a sample with the same timestamp is already stored.
var ErrDuplicateTimestamp = errors.New("sample with this timestamp already stored")

const MaxLatest = 500

type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{dbPath: path}
}

func (s *SQLiteStore) Init() error {
	var err error

	s.db, err = sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// The collector and the API handlers share one connection; sqlite
	// serialises writers anyway.
	s.db.SetMaxOpenConns(1)

	if err = s.db.Ping(); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		block_height INTEGER NOT NULL,
		btc_price REAL NOT NULL,
		timestamp TEXT NOT NULL UNIQUE
	);`

	_, err = s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}

	return nil
}

func (s *SQLiteStore) StoreSample(ctx context.Context, sample domain.MetricSample) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO metrics(block_height, btc_price, timestamp) VALUES(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, sample.BlockHeight, sample.BTCPrice, sample.Timestamp)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrDuplicateTimestamp, sample.Timestamp)
		}
		return fmt.Errorf("error inserting sample: %w", err)
	}
	return nil
}

// LatestSamples returns the newest limit rows in insertion order (oldest first).
func (s *SQLiteStore) LatestSamples(ctx context.Context, limit int) ([]domain.MetricSample, error) {
	if limit <= 0 || limit > MaxLatest {
		limit = MaxLatest
	}

	query := `
	SELECT block_height, btc_price, timestamp FROM (
		SELECT id, block_height, btc_price, timestamp FROM metrics ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// GetSamples returns rows whose timestamp lies in [start, end], compared as
// strings, which orders correctly for the collector's UTC RFC 3339 values.
func (s *SQLiteStore) GetSamples(ctx context.Context, start, end string, limit, offset int) ([]domain.MetricSample, error) {
	query := "SELECT block_height, btc_price, timestamp FROM metrics WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC"
	args := []interface{}{start, end}

	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if offset < 0 {
		offset = 0
	}
	query += " OFFSET ?"
	args = append(args, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]domain.MetricSample, error) {
	fetched := []domain.MetricSample{}

	for rows.Next() {
		var m domain.MetricSample
		if err := rows.Scan(&m.BlockHeight, &m.BTCPrice, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		fetched = append(fetched, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return fetched, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ domain.MetricStore = (*SQLiteStore)(nil)
