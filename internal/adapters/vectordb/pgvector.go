package vectordb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// DefaultCloseTimeout bounds dropping the run table when an index closes.
const DefaultCloseTimeout = 5 * time.Second

// PgVectorProvider opens per-run indexes backed by a Postgres temporary table.
// Each index holds one pooled connection until it is closed, so the pool size
// bounds concurrent runs.
type PgVectorProvider struct {
	pool   *pgxpool.Pool
	metric entities.Metric
}

// NewPgVectorProvider connects to databaseURL and registers pgvector types.
func NewPgVectorProvider(ctx context.Context, databaseURL string, metric entities.Metric) (*PgVectorProvider, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("enabling pgvector: %w", err)
		}
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PgVectorProvider{pool: pool, metric: metric}, nil
}

// Open acquires a connection and creates the run's temporary table on it.
func (p *PgVectorProvider) Open(ctx context.Context) (ports.SimilarityIndex, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	_, err = conn.Exec(ctx, `
		CREATE TEMPORARY TABLE IF NOT EXISTS run_fragments (
			id INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector NOT NULL
		)`)
	if err == nil {
		_, err = conn.Exec(ctx, "TRUNCATE run_fragments")
	}
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("creating temporary table: %w", err)
	}
	return &PgVectorIndex{conn: conn, metric: p.metric, closeTimeout: DefaultCloseTimeout}, nil
}

func (p *PgVectorProvider) Name() string { return "pgvector" }

// Close closes the pool. Open indexes must be closed first.
func (p *PgVectorProvider) Close() {
	p.pool.Close()
}

// PgVectorIndex implements ports.SimilarityIndex on one Postgres session.
type PgVectorIndex struct {
	mu           sync.Mutex
	conn         *pgxpool.Conn
	metric       entities.Metric
	dims         int
	count        int
	closeTimeout time.Duration
}

// Build replaces the table contents in one transaction.
func (s *PgVectorIndex) Build(ctx context.Context, entries []entities.IndexEntry) error {
	dims, err := checkEntries(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE run_fragments"); err != nil {
		return fmt.Errorf("clearing fragments: %w", err)
	}
	batch := &pgx.Batch{}
	for i, e := range entries {
		batch.Queue(`INSERT INTO run_fragments (id, content, embedding) VALUES ($1, $2, $3)`,
			i, e.Text, pgvector.NewVector(e.Vector))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting fragments: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	s.dims, s.count = dims, len(entries)
	return nil
}

// Query orders by the pgvector distance operator of the index metric.
func (s *PgVectorIndex) Query(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkQuery(s.count, s.dims, vector, k); err != nil {
		return nil, err
	}

	op := "<->"
	if s.metric == entities.MetricCosine {
		op = "<=>"
	}
	rows, err := s.conn.Query(ctx,
		`SELECT content, (embedding `+op+` $1)::FLOAT8 AS distance
		FROM run_fragments
		ORDER BY distance ASC, id ASC
		LIMIT $2`,
		pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var results []entities.Neighbor
	for rows.Next() {
		var n entities.Neighbor
		if err := rows.Scan(&n.Text, &n.Distance); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (s *PgVectorIndex) Metric() entities.Metric { return s.metric }

// Close drops the temporary table and returns the connection to the pool.
func (s *PgVectorIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()
	// An interrupted Exec closes the session. A leftover table is truncated
	// by the next Open on the same session.
	_, err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS run_fragments")
	s.conn.Release()
	s.conn = nil
	s.count = 0
	return err
}
