package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists broadcast records in a relational table for deployments
// that outlive a single host.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, verifies the connection, and ensures the table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS signal_history (
		id SERIAL PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		take_profit DOUBLE PRECISION NOT NULL,
		stop_loss DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		recipient TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Append(ctx context.Context, entry Entry) error {
	const query = `INSERT INTO signal_history
		(ts, symbol, direction, price, confidence, take_profit, stop_loss, status, recipient)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := p.db.ExecContext(ctx, query,
		entry.Ts, entry.Symbol, entry.Direction, entry.Price, entry.Confidence,
		entry.TakeProfit, entry.StopLoss, entry.Status, entry.Recipient)
	return err
}

func (p *PostgresStore) Scan(ctx context.Context) ([]Entry, error) {
	const query = `SELECT ts, symbol, direction, price, confidence, take_profit, stop_loss, status, recipient
		FROM signal_history ORDER BY ts, id`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Ts, &e.Symbol, &e.Direction, &e.Price, &e.Confidence,
			&e.TakeProfit, &e.StopLoss, &e.Status, &e.Recipient); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresStore) Close() error { return p.db.Close() }
