package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore records one row per dispatch attempt for later inspection.
// It stores event metadata and the outcome only — never user_data, so no PII
// reaches the database in any mode. The store is optional; a nil *PostgresStore
// disables delivery logging.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// RecordDelivery logs one dispatch attempt. Attempts are intentionally NOT
// deduplicated on event_id: retries of the same logical event are distinct
// attempts here, and deduplication of the event itself is the upstream API's
// job once it sees the same event_id twice.
func (p *PostgresStore) RecordDelivery(
	ctx context.Context,
	eventID string,
	eventName string,
	mode string,
	ok bool,
	upstreamStatus int,
	errText string,
) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO deliveries(event_id, event_name, mode, ok, upstream_status, error, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, eventID, eventName, mode, ok, upstreamStatus, errText, time.Now().UTC())

	return err
}

// CountDeliveries returns attempt counts for eventName in the time window
// [from,to), split by outcome. A half-open interval avoids double counting
// at window boundaries.
func (p *PostgresStore) CountDeliveries(
	ctx context.Context,
	eventName string,
	from time.Time,
	to time.Time,
) (delivered int64, failed int64, err error) {

	err = p.pool.QueryRow(ctx, `
		SELECT
		  COUNT(*) FILTER (WHERE ok),
		  COUNT(*) FILTER (WHERE NOT ok)
		FROM deliveries
		WHERE event_name=$1
		  AND ts >= $2
		  AND ts <  $3
	`, eventName, from, to).Scan(&delivered, &failed)

	return delivered, failed, err
}
