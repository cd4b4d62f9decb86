package vectordb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// vecExtension is set when the binary is built with the sqlite_vec tag and
// the vec_distance_* functions are available on every connection.
var vecExtension bool

// SQLiteIndex implements ports.SimilarityIndex with a throwaway SQLite file.
// Distances run inside SQLite when sqlite-vec is linked in, otherwise rows are
// scanned and compared in Go.
type SQLiteIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	metric entities.Metric
	dims   int
	count  int
}

// NewSQLiteIndex creates an index in a fresh temp directory under baseDir
// (os.TempDir when empty). Close removes the directory.
func NewSQLiteIndex(baseDir string, metric entities.Metric) (*SQLiteIndex, error) {
	dir, err := os.MkdirTemp(baseDir, "versecraft-index-*")
	if err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteIndex{db: db, dir: dir, metric: metric}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fragments (
		id INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Build replaces the table contents in one transaction.
func (s *SQLiteIndex) Build(ctx context.Context, entries []entities.IndexEntry) error {
	dims, err := checkEntries(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments"); err != nil {
		return fmt.Errorf("clearing fragments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fragments (id, content, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.Text, encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("inserting fragment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	s.dims, s.count = dims, len(entries)
	return nil
}

// Query returns the k nearest fragments.
func (s *SQLiteIndex) Query(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := checkQuery(s.count, s.dims, vector, k); err != nil {
		return nil, err
	}
	if vecExtension {
		return s.queryVec(ctx, vector, k)
	}
	return s.queryScan(ctx, vector, k)
}

// queryVec lets sqlite-vec rank rows. id breaks ties in insertion order.
func (s *SQLiteIndex) queryVec(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error) {
	fn := "vec_distance_l2"
	if s.metric == entities.MetricCosine {
		fn = "vec_distance_cosine"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT content, `+fn+`(embedding, ?) AS distance FROM fragments ORDER BY distance ASC, id ASC LIMIT ?`,
		encodeVector(vector), k)
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

// queryScan loads every row and ranks in Go.
func (s *SQLiteIndex) queryScan(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content, embedding FROM fragments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	results := make([]entities.Neighbor, 0, s.count)
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		results = append(results, entities.Neighbor{Text: text, Distance: s.metric.Distance(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nearest(results, k), nil
}

func (s *SQLiteIndex) Metric() entities.Metric { return s.metric }

// Close closes the database and deletes its directory.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
		err = rmErr
	}
	s.count = 0
	return err
}

// Dir is the temp directory backing the index.
func (s *SQLiteIndex) Dir() string { return s.dir }

// SQLiteProvider opens a new SQLiteIndex per run.
type SQLiteProvider struct {
	baseDir string
	metric  entities.Metric
}

// NewSQLiteProvider creates a provider writing under baseDir.
func NewSQLiteProvider(baseDir string, metric entities.Metric) *SQLiteProvider {
	return &SQLiteProvider{baseDir: baseDir, metric: metric}
}

func (p *SQLiteProvider) Open(ctx context.Context) (ports.SimilarityIndex, error) {
	return NewSQLiteIndex(p.baseDir, p.metric)
}

func (p *SQLiteProvider) Name() string {
	if vecExtension {
		return "sqlite-vec"
	}
	return "sqlite"
}

// encodeVector writes little-endian float32s, the layout sqlite-vec reads.
func encodeVector(v entities.Vector) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []float32(v))
	return buf.Bytes()
}

func decodeVector(blob []byte) (entities.Vector, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(blob))
	}
	v := make(entities.Vector, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, []float32(v)); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	return v, nil
}
