package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// LocalConfig holds the settings for a LocalStore.
type LocalConfig struct {
	// Dir is the durable storage directory for this service instance.
	// Required; the parent must exist and be writable.
	Dir string

	// Collection is the collection name rows are scoped to.
	Collection string

	// Metric is the distance metric fixed for this collection.
	Metric Metric

	// Recreate wipes Dir entirely before opening when it already exists.
	// This must complete before any other operation — a one-time startup
	// barrier, not an ongoing lock.
	Recreate bool
}

// LocalStore is a Store backed by a SQLite file inside a durable storage
// directory. Vectors are kept as little-endian float32 blobs and searched
// with an exact scan — suitable for the tens of thousands of chunks a
// single service instance indexes, and it keeps the whole engine runnable
// without a network. SQLite's single-writer connection serializes writes;
// concurrent reads are safe.
type LocalStore struct {
	// db is the underlying database handle.
	db *sql.DB

	// collection is the bound collection name.
	collection string

	// metric computes query distances.
	metric Metric
}

// OpenLocal opens (or creates) the local store under cfg.Dir and runs the
// schema migration. A missing Dir value, an unwritable path, or a missing
// parent directory is a fatal configuration error.
func OpenLocal(cfg *LocalConfig) (*LocalStore, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, fmt.Errorf("index: local store requires a storage directory")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("index: local store requires a collection name")
	}
	metric, err := ParseMetric(string(cfg.Metric))
	if err != nil {
		return nil, err
	}

	if cfg.Recreate {
		if _, err := os.Stat(cfg.Dir); err == nil {
			if err := os.RemoveAll(cfg.Dir); err != nil {
				return nil, fmt.Errorf("index: recreate: wiping %s: %w", cfg.Dir, err)
			}
		}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: storage directory %s: %w", cfg.Dir, err)
	}

	// WAL keeps concurrent readers from blocking behind the single writer.
	path := filepath.Join(cfg.Dir, "index.db")
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// One writer connection avoids SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &LocalStore{db: db, collection: cfg.Collection, metric: metric}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *LocalStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    id          TEXT NOT NULL,
    collection  TEXT NOT NULL,
    document    TEXT NOT NULL CHECK(document <> ''),
    metadata    TEXT NOT NULL,  -- JSON object of string pairs
    embedding   BLOB NOT NULL,  -- little-endian float32 values
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks (collection);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("index: migrate: %w", err)
	}
	return nil
}

// Add inserts one batch of chunks. Existing ids are overwritten.
func (s *LocalStore) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string, vectors [][]float32) error {
	if len(documents) != len(metadatas) || len(documents) != len(ids) || len(documents) != len(vectors) {
		return fmt.Errorf("index: local add: parallel slices have unequal lengths")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: local add: begin: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT OR REPLACE INTO chunks (id, collection, document, metadata, embedding) VALUES (?, ?, ?, ?, ?)`
	for i := range documents {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("index: local add: metadata for %s: %w", ids[i], err)
		}
		if _, err := tx.ExecContext(ctx, q, ids[i], s.collection, documents[i], string(meta), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("index: local add: insert %s: %w", ids[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: local add: commit: %w", err)
	}
	return nil
}

// Query scans the collection, scores every chunk against vector under the
// configured metric, and returns the k closest by ascending distance.
func (s *LocalStore) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Chunk, error) {
	const q = `SELECT id, document, metadata, embedding FROM chunks WHERE collection = ?`
	rows, err := s.db.QueryContext(ctx, q, s.collection)
	if err != nil {
		return nil, fmt.Errorf("index: local query: %w", err)
	}
	defer rows.Close()

	var matches []Chunk
	for rows.Next() {
		var c Chunk
		var meta string
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("index: local query scan: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return nil, fmt.Errorf("index: local query: metadata for %s: %w", c.ID, err)
		}
		if !matchesFilter(c.Metadata, filter) {
			continue
		}
		c.Distance = s.metric.distance(vector, decodeVector(blob))
		matches = append(matches, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: local query rows: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes chunks by id; unknown ids are ignored.
func (s *LocalStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := fmt.Sprintf(`DELETE FROM chunks WHERE collection = ? AND id IN (%s)`, placeholders)

	args := make([]any, 0, len(ids)+1)
	args = append(args, s.collection)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("index: local delete: %w", err)
	}
	return nil
}

// Drop removes every chunk of the named collection (the bound collection
// when name is empty). Dropping an absent collection is a no-op.
func (s *LocalStore) Drop(ctx context.Context, name string) error {
	if name == "" {
		name = s.collection
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("index: local drop %q: %w", name, err)
	}
	return nil
}

// Count returns the number of chunks in the bound collection.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index: local count: %w", err)
	}
	return n, nil
}

// Ping reports whether the database file is reachable. Used by readiness
// probes.
func (s *LocalStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// matchesFilter reports whether metadata satisfies every filter key with an
// exact string match. A nil or empty filter matches everything.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// encodeVector packs a float32 vector into a little-endian byte blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian byte blob into a float32 vector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
