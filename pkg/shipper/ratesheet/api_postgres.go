package ratesheet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the rate table layout the Postgres backend reads.
const Schema = `CREATE TABLE IF NOT EXISTS rate_rows (
	table_name  TEXT             NOT NULL,
	name        TEXT             NOT NULL,
	postal_from TEXT             NOT NULL DEFAULT '',
	postal_to   TEXT             NOT NULL DEFAULT '',
	weight_max  DOUBLE PRECISION NOT NULL,
	cost        NUMERIC(12, 2)   NOT NULL
)`

// lookupQuery returns, per service name, the row of the smallest weight bracket
// that still covers the weight.
const lookupQuery = `SELECT DISTINCT ON (name) name, cost::float8 AS cost
FROM rate_rows
WHERE table_name = $1
  AND weight_max >= $2
  AND (postal_from = '' OR postal_from <= $3)
  AND (postal_to = '' OR postal_to >= $3)
ORDER BY name, weight_max ASC`

// PostgresAPIClient reads rate tables from Postgres.
type PostgresAPIClient struct {
	pool *pgxpool.Pool
}

// NewPostgresAPIClient creates a pool for databaseURL and verifies it with a ping.
func NewPostgresAPIClient(ctx context.Context, databaseURL string) (*PostgresAPIClient, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating rate table pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging rate table database: %w", err)
	}

	return &PostgresAPIClient{pool: pool}, nil
}

// Migrate creates the rate_rows table if missing.
func (c *PostgresAPIClient) Migrate(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating rate_rows: %w", err)
	}
	return nil
}

// Insert stores rows under table. Used for seeding.
func (c *PostgresAPIClient) Insert(ctx context.Context, table string, rows []Row) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			"INSERT INTO rate_rows (table_name, name, postal_from, postal_to, weight_max, cost) VALUES ($1, $2, $3, $4, $5, $6)",
			table, r.Name, r.PostalFrom, r.PostalTo, r.WeightMax, r.Cost)
	}
	if err := c.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting rate rows: %w", err)
	}
	return nil
}

// Lookup queries the rows matching the request.
func (c *PostgresAPIClient) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	rows, err := c.pool.Query(ctx, lookupQuery, req.Table, req.WeightKg, req.PostalCode)
	if err != nil {
		return nil, fmt.Errorf("querying rate table %q: %w", req.Table, err)
	}

	rates, err := pgx.CollectRows(rows, pgx.RowToStructByName[Rate])
	if err != nil {
		return nil, fmt.Errorf("reading rate table %q: %w", req.Table, err)
	}

	return &LookupResponse{Table: req.Table, Rates: rates}, nil
}

// Close shuts down the connection pool.
func (c *PostgresAPIClient) Close() error {
	c.pool.Close()
	return nil
}

var _ APIClient = (*PostgresAPIClient)(nil)
