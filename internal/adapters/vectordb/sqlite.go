// Package vectordb provides vector store adapters implementing ports.VectorStore:
// a persistent SQLite store with named collections and an in-memory store.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// DatabaseFile is the file name of the index database inside the data directory.
const DatabaseFile = "index.db"

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Count     int
	CreatedAt time.Time
}

// SQLiteStore holds named collections of chunk records in one SQLite file.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) <dataPath>/index.db.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, DatabaseFile)
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
		id TEXT NOT NULL,
		source TEXT NOT NULL,
		seq INTEGER NOT NULL,
		content TEXT NOT NULL,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_source ON records(collection, source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// OpenCollection returns the named collection, creating it empty if missing.
func (s *SQLiteStore) OpenCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", entities.ErrInvalidConfiguration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, name); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}
	return &Collection{store: s, name: name}, nil
}

// DeleteCollection drops a collection and its records. Missing collections are ignored.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return tx.Commit()
}

// Collections lists every collection with its record count.
func (s *SQLiteStore) Collections(ctx context.Context) ([]CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.dimension, c.created_at, COUNT(r.id)
		FROM collections c LEFT JOIN records r ON r.collection = c.name
		GROUP BY c.name ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.Dimension, &info.CreatedAt, &info.Count); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.VectorStore = (*Collection)(nil)

// Collection is one named set of records. The first Add fixes its dimension.
type Collection struct {
	store *SQLiteStore
	name  string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimension returns the fixed embedding dimension, or 0 while empty.
func (c *Collection) Dimension(ctx context.Context) (int, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var dim int
	err := c.store.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, c.name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dim, err
}

// Add stores records in one transaction.
func (c *Collection) Add(ctx context.Context, records []entities.Record) error {
	if len(records) == 0 {
		return nil
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// recreate the collection row if it was deleted under us
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, c.name); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	var dim int
	if err := tx.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, c.name).Scan(&dim); err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}
	if dim == 0 {
		dim = records[0].Embedding.Dimension()
		if _, err := tx.ExecContext(ctx, `UPDATE collections SET dimension = ? WHERE name = ?`, dim, c.name); err != nil {
			return fmt.Errorf("setting dimension: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (collection, id, source, seq, content, span_start, span_end, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.Embedding.Dimension() != dim {
			return fmt.Errorf("%w: record %s has %d dimensions, collection %s has %d",
				entities.ErrDimensionMismatch, rec.Chunk.ID, rec.Embedding.Dimension(), c.name, dim)
		}
		_, err := stmt.ExecContext(ctx,
			c.name,
			rec.Chunk.ID,
			rec.Chunk.Source,
			rec.Chunk.Sequence,
			rec.Chunk.Text,
			rec.Chunk.Start,
			rec.Chunk.End,
			float32SliceToBytes(rec.Embedding.Vector),
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.Chunk.ID, err)
		}
	}

	return tx.Commit()
}

// Records returns every record in insertion order.
func (c *Collection) Records(ctx context.Context) ([]entities.Record, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, source, seq, content, span_start, span_end, embedding
		FROM records WHERE collection = ? ORDER BY rowid
	`, c.name)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []entities.Record
	for rows.Next() {
		var rec entities.Record
		var blob []byte
		err := rows.Scan(
			&rec.Chunk.ID,
			&rec.Chunk.Source,
			&rec.Chunk.Sequence,
			&rec.Chunk.Text,
			&rec.Chunk.Start,
			&rec.Chunk.End,
			&blob,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Embedding = entities.Embedding{ChunkID: rec.Chunk.ID, Vector: bytesToFloat32Slice(blob)}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// IDs returns the set of stored chunk ids.
func (c *Collection) IDs(ctx context.Context) (map[string]struct{}, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	rows, err := c.store.db.QueryContext(ctx, `SELECT id FROM records WHERE collection = ?`, c.name)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Count returns the number of stored records.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var count int
	err := c.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, c.name).Scan(&count)
	return count, err
}

// Reset drops every record and clears the dimension.
func (c *Collection) Reset(ctx context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, c.name); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE collections SET dimension = 0 WHERE name = ?`, c.name); err != nil {
		return fmt.Errorf("clearing dimension: %w", err)
	}
	return tx.Commit()
}

// float32SliceToBytes encodes a vector as little-endian float32s.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
