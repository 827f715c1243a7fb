// Package cas implements the content-addressable scratch buffer store: a
// process-wide map from an 8-hex-char BLAKE3 prefix to a line-range slice of
// content, used to move code between files without round-tripping full
// file contents through the client.
package cas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/gofer-dev/gofer/internal/logging"
)

// ErrInvalidParams marks a caller-facing argument error (out-of-range
// indices, oversized slice, unknown/expired hash).
var ErrInvalidParams = errors.New("cas: invalid params")

const (
	maxBufferBytes = 1 << 20 // 1 MiB
	maxLiveBuffers = 1000
)

// Buffer is one live content-addressable buffer.
type Buffer struct {
	HashID      string
	Lines       []string
	Source      string // originating file path, empty for content() buffers
	CreatedAt   time.Time
	ExpiresAt   time.Time
	AccessCount int
}

// Info is the client-visible summary returned by List.
type Info struct {
	HashID      string `json:"hash_id"`
	Size        int    `json:"size"`
	Lines       int    `json:"lines"`
	Source      string `json:"source,omitempty"`
	AgeSeconds  int64  `json:"age_seconds"`
	ExpiresIn   int64  `json:"expires_in_seconds"`
	AccessCount int    `json:"access_count"`
}

// Store is the process-wide buffer map.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	buffers map[string]*Buffer
}

// New creates an empty store with the given buffer TTL.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{ttl: ttl, buffers: make(map[string]*Buffer)}
}

func hashLines(lines []string) string {
	h := blake3.New()
	h.Write([]byte(strings.Join(lines, "\n")))
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum)[:8]
}

// sweepLocked removes expired buffers. Must be called with s.mu held.
func (s *Store) sweepLocked() {
	now := time.Now()
	for id, buf := range s.buffers {
		if now.After(buf.ExpiresAt) {
			delete(s.buffers, id)
		}
	}
}

// Extract reads path, slices the inclusive 1-based [start,end] line range,
// stores it as a new buffer, and optionally rewrites the file with the
// slice removed (cut=true).
func (s *Store) Extract(ctx context.Context, path string, start, end int, cut bool) (*Buffer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cas: read %s: %w", path, err)
	}

	allLines := strings.Split(string(content), "\n")
	if start < 1 || end < start || end > len(allLines) {
		return nil, fmt.Errorf("%w: line range [%d,%d] out of bounds for %d lines", ErrInvalidParams, start, end, len(allLines))
	}

	slice := allLines[start-1 : end]
	size := 0
	for _, l := range slice {
		size += len(l) + 1
	}
	if size > maxBufferBytes {
		return nil, fmt.Errorf("%w: extracted slice exceeds 1 MiB", ErrInvalidParams)
	}

	buf, err := s.store(slice, path)
	if err != nil {
		return nil, err
	}

	if cut {
		remaining := append(append([]string{}, allLines[:start-1]...), allLines[end:]...)
		if err := os.WriteFile(path, []byte(strings.Join(remaining, "\n")), 0644); err != nil {
			return nil, fmt.Errorf("cas: rewrite %s after cut: %w", path, err)
		}
		logging.CAS("extract: cut [%d,%d] from %s -> %s", start, end, path, buf.HashID)
	} else {
		logging.CAS("extract: copied [%d,%d] from %s -> %s", start, end, path, buf.HashID)
	}

	return buf, nil
}

// Content stores raw bytes directly, without a source file.
func (s *Store) Content(ctx context.Context, content []byte) (*Buffer, error) {
	if len(content) > maxBufferBytes {
		return nil, fmt.Errorf("%w: content exceeds 1 MiB", ErrInvalidParams)
	}
	lines := strings.Split(string(content), "\n")
	return s.store(lines, "")
}

func (s *Store) store(lines []string, source string) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.buffers) >= maxLiveBuffers {
		return nil, fmt.Errorf("%w: live buffer set is at capacity (%d)", ErrInvalidParams, maxLiveBuffers)
	}

	id := hashLines(lines)
	now := time.Now()
	buf := &Buffer{
		HashID:    id,
		Lines:     lines,
		Source:    source,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.buffers[id] = buf
	return buf, nil
}

func (s *Store) lookup(hashID string) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[hashID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown buffer %s", ErrInvalidParams, hashID)
	}
	if time.Now().After(buf.ExpiresAt) {
		delete(s.buffers, hashID)
		return nil, fmt.Errorf("%w: buffer %s has expired", ErrInvalidParams, hashID)
	}
	buf.AccessCount++
	return buf, nil
}

// Insert fetches the buffer and inserts its lines at a 1-based line number
// in path (0 means the beginning; values beyond EOF clamp to the end).
func (s *Store) Insert(ctx context.Context, path string, line int, hashID string) error {
	buf, err := s.lookup(hashID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cas: create parent dirs for %s: %w", path, err)
	}

	var existing []string
	if content, err := os.ReadFile(path); err == nil {
		existing = strings.Split(string(content), "\n")
	}

	idx := line
	if idx < 0 {
		idx = 0
	}
	if idx > len(existing) {
		idx = len(existing)
	}

	merged := append(append(append([]string{}, existing[:idx]...), buf.Lines...), existing[idx:]...)
	if err := os.WriteFile(path, []byte(strings.Join(merged, "\n")), 0644); err != nil {
		return fmt.Errorf("cas: write %s: %w", path, err)
	}

	logging.CAS("insert: %s lines at line %d in %s", hashID, line, path)
	return nil
}

// Replace drains lines [start,end] (1-based, inclusive) from path and
// inserts the buffer's lines in their place.
func (s *Store) Replace(ctx context.Context, path string, start, end int, hashID string) error {
	buf, err := s.lookup(hashID)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cas: read %s: %w", path, err)
	}

	allLines := strings.Split(string(content), "\n")
	if start < 1 || end < start || end > len(allLines) {
		return fmt.Errorf("%w: line range [%d,%d] out of bounds for %d lines", ErrInvalidParams, start, end, len(allLines))
	}

	merged := append(append(append([]string{}, allLines[:start-1]...), buf.Lines...), allLines[end:]...)
	if err := os.WriteFile(path, []byte(strings.Join(merged, "\n")), 0644); err != nil {
		return fmt.Errorf("cas: write %s: %w", path, err)
	}

	logging.CAS("replace: [%d,%d] in %s with buffer %s", start, end, path, hashID)
	return nil
}

// List sweeps expired buffers, then returns live buffer summaries and
// their aggregate size.
func (s *Store) List() ([]Info, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	now := time.Now()
	infos := make([]Info, 0, len(s.buffers))
	total := 0
	for _, buf := range s.buffers {
		size := 0
		for _, l := range buf.Lines {
			size += len(l) + 1
		}
		total += size
		infos = append(infos, Info{
			HashID:      buf.HashID,
			Size:        size,
			Lines:       len(buf.Lines),
			Source:      buf.Source,
			AgeSeconds:  int64(now.Sub(buf.CreatedAt).Seconds()),
			ExpiresIn:   int64(buf.ExpiresAt.Sub(now).Seconds()),
			AccessCount: buf.AccessCount,
		})
	}
	return infos, total
}

// Clear removes one buffer (if hashID is non-empty) or all buffers.
func (s *Store) Clear(hashID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hashID == "" {
		n := len(s.buffers)
		s.buffers = make(map[string]*Buffer)
		return n
	}
	if _, ok := s.buffers[hashID]; ok {
		delete(s.buffers, hashID)
		return 1
	}
	return 0
}
