// Package store implements the indexed database: file and symbol tables,
// a vector index over embedded code chunks (sqlite-vec when available,
// brute-force cosine similarity otherwise), and an FTS5 full-text index
// used by the keyword leg of hybrid search.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gofer-dev/gofer/internal/logging"
)

// File is a row of the files table: one indexed source file.
type File struct {
	Path      string
	Language  string
	Size      int64
	ModTime   time.Time
	Summary   string
	IndexedAt time.Time
}

// Symbol is a row of the symbols table: one named code entity.
type Symbol struct {
	ID       int64
	FilePath string
	Name     string
	Kind     string
	Line     int
}

// Chunk is one embedded, searchable span of source content.
type Chunk struct {
	ID        int64
	FilePath  string
	StartLine int
	Content   string
}

// VectorHit is a chunk returned by vector similarity search.
type VectorHit struct {
	Chunk
	Score float64
}

// KeywordHit is a chunk returned by full-text search.
type KeywordHit struct {
	Chunk
	Rank float64
}

// Store owns the sqlite connection backing the indexed database and
// vector store.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	dim       int
	vectorExt bool
}

// Open creates (or reuses) a sqlite database at path and runs migrations.
// dim is the embedding dimensionality used for the vector index; 0 skips
// vector-index initialization (keyword-only mode).
func Open(path string, dim int) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("store: pragma %q failed: %v", pragma, err)
		}
	}

	s := &Store{db: db, dim: dim}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if dim > 0 {
		s.initVecIndex(dim)
	}

	logging.Store("opened store at %s (vector_ext=%v dim=%d)", path, s.vectorExt, dim)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			language TEXT,
			size INTEGER,
			mod_time TIMESTAMP,
			summary TEXT,
			indexed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			line INTEGER NOT NULL,
			FOREIGN KEY (file_path) REFERENCES files(path) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			FOREIGN KEY (file_path) REFERENCES files(path) ON DELETE CASCADE
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			content, file_path UNINDEXED, start_line UNINDEXED, content=chunks, content_rowid=id
		)`,
		`CREATE TABLE IF NOT EXISTS cache_blobs (
			cache_key TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// initVecIndex attempts to create a sqlite-vec virtual table; on success
// vectorExt flips true and VectorSearch/IndexChunk use ANN retrieval.
func (s *Store) initVecIndex(dim int) {
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[%d], chunk_id INTEGER)", dim)
	if _, err := s.db.Exec(stmt); err == nil {
		s.vectorExt = true
		logging.Store("sqlite-vec index initialized (dim=%d)", dim)
	} else {
		logging.StoreWarn("sqlite-vec unavailable, falling back to brute-force similarity: %v", err)
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// CountFiles returns the number of rows in the files table.
func (s *Store) CountFiles() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n)
	return n, err
}

// CountSymbols returns the number of rows in the symbols table.
func (s *Store) CountSymbols() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&n)
	return n, err
}

// UpsertFile records or updates a file's metadata row.
func (s *Store) UpsertFile(f File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO files (path, language, size, mod_time, summary, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language=excluded.language, size=excluded.size, mod_time=excluded.mod_time,
			summary=excluded.summary, indexed_at=excluded.indexed_at
	`, f.Path, f.Language, f.Size, f.ModTime, f.Summary, f.IndexedAt)
	return err
}

// GetFile retrieves a single file's metadata.
func (s *Store) GetFile(path string) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var f File
	err := s.db.QueryRow(`SELECT path, language, size, mod_time, summary, indexed_at FROM files WHERE path = ?`, path).
		Scan(&f.Path, &f.Language, &f.Size, &f.ModTime, &f.Summary, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertSymbol inserts a symbol row, replacing any row with the same
// (file_path, name, line) triple.
func (s *Store) UpsertSymbol(sym Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM symbols WHERE file_path = ? AND name = ? AND line = ?
	`, sym.FilePath, sym.Name, sym.Line)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO symbols (file_path, name, kind, line) VALUES (?, ?, ?, ?)`,
		sym.FilePath, sym.Name, sym.Kind, sym.Line)
	return err
}

// ListSymbols returns symbols matching optional file/kind filters,
// offset/limited, ordered by file path then line.
func (s *Store) ListSymbols(fileFilter, kindFilter string, offset, limit int) ([]Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, file_path, name, kind, line FROM symbols WHERE 1=1`
	var args []any
	if fileFilter != "" {
		query += ` AND file_path LIKE ?`
		args = append(args, "%"+fileFilter+"%")
	}
	if kindFilter != "" {
		query += ` AND kind = ?`
		args = append(args, kindFilter)
	}
	query += ` ORDER BY file_path, line LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(&sym.ID, &sym.FilePath, &sym.Name, &sym.Kind, &sym.Line); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// IndexChunk stores one embedded code span, populating both the
// full-text index and (when available) the vector index.
func (s *Store) IndexChunk(ctx context.Context, c Chunk, embedding []float32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embeddingBlob []byte
	if len(embedding) > 0 {
		embeddingBlob = encodeFloat32Slice(embedding)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (file_path, start_line, content, embedding) VALUES (?, ?, ?, ?)`,
		c.FilePath, c.StartLine, c.Content, embeddingBlob)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks_fts(rowid, content, file_path, start_line) VALUES (?, ?, ?, ?)`,
		id, c.Content, c.FilePath, c.StartLine); err != nil {
		logging.StoreWarn("index chunk %d: fts insert failed: %v", id, err)
	}

	if s.vectorExt && len(embedding) == int(s.dim) {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO vec_chunks(rowid, embedding, chunk_id) VALUES (?, ?, ?)`,
			id, encodeFloat32Slice(embedding), id); err != nil {
			logging.StoreWarn("index chunk %d: vec insert failed: %v", id, err)
		}
	}

	return id, nil
}

// VectorSearch retrieves the k nearest chunks to queryEmbedding, optionally
// restricted to paths matching pathFilter (a SQL LIKE pattern fragment).
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int, pathFilter string) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vectorExt {
		return s.vectorSearchANN(ctx, queryEmbedding, k, pathFilter)
	}
	return s.vectorSearchBruteForce(ctx, queryEmbedding, k, pathFilter)
}

func (s *Store) vectorSearchANN(ctx context.Context, queryEmbedding []float32, k int, pathFilter string) ([]VectorHit, error) {
	queryBlob := encodeFloat32Slice(queryEmbedding)
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.file_path, c.start_line, c.content, v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("store: vector ANN search: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		var distance float64
		if err := rows.Scan(&h.ID, &h.FilePath, &h.StartLine, &h.Content, &distance); err != nil {
			return nil, err
		}
		h.Score = 1.0 / (1.0 + distance)
		if pathFilter == "" || strings.Contains(h.FilePath, pathFilter) {
			hits = append(hits, h)
		}
	}
	return hits, rows.Err()
}

func (s *Store) vectorSearchBruteForce(ctx context.Context, queryEmbedding []float32, k int, pathFilter string) ([]VectorHit, error) {
	query := `SELECT id, file_path, start_line, content, embedding FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if pathFilter != "" {
		query += ` AND file_path LIKE ?`
		args = append(args, "%"+pathFilter+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []VectorHit
	for rows.Next() {
		var h VectorHit
		var embeddingBlob []byte
		if err := rows.Scan(&h.ID, &h.FilePath, &h.StartLine, &h.Content, &embeddingBlob); err != nil {
			continue
		}
		vec := decodeFloat32Slice(embeddingBlob)
		sim, err := cosineSimilarity(queryEmbedding, vec)
		if err != nil {
			continue
		}
		h.Score = sim
		candidates = append(candidates, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// KeywordSearch runs a disjunctive FTS5 query over whitespace-split
// tokens, returning the k best-ranked chunks.
func (s *Store) KeywordSearch(ctx context.Context, tokens []string, k int, pathFilter string) ([]KeywordHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(tokens) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = fmt.Sprintf(`"%s"`, strings.ReplaceAll(t, `"`, `""`))
	}
	ftsQuery := strings.Join(quoted, " OR ")

	query := `
		SELECT c.id, c.file_path, c.start_line, c.content, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
	`
	args := []any{ftsQuery}
	if pathFilter != "" {
		query += ` AND c.file_path LIKE ?`
		args = append(args, "%"+pathFilter+"%")
	}
	query += ` ORDER BY rank LIMIT ?`
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.ID, &h.FilePath, &h.StartLine, &h.Content, &h.Rank); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// PutCacheBlob persists an opaque pre-encoded listing blob keyed by a
// structural cache key, for cross-process cache durability.
func (s *Store) PutCacheBlob(key string, blob []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO cache_blobs (cache_key, blob, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET blob=excluded.blob, expires_at=excluded.expires_at
	`, key, blob, expiresAt)
	return err
}

// GetCacheBlob retrieves a non-expired cache blob, or nil if absent/expired.
func (s *Store) GetCacheBlob(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var blob []byte
	var expiresAt time.Time
	err := s.db.QueryRow(`SELECT blob, expires_at FROM cache_blobs WHERE cache_key = ?`, key).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) {
		return nil, nil
	}
	return blob, nil
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeFloat32Slice(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	_ = binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec)
	return vec
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("store: dimension mismatch (%d vs %d)", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
