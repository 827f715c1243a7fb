// Package trash implements the soft-delete trash store: moving files or
// directories aside into a UUID-keyed on-disk layout under
// <project>/.gofer/trash/ instead of deleting them outright, with restore
// and purge operations.
package trash

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gofer-dev/gofer/internal/logging"
)

// Status values mirror spec.md §7's structured status discriminator.
const (
	StatusSuccess  = "success"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Metadata is persisted as metadata.json alongside the moved content.
type Metadata struct {
	UUID         string    `json:"uuid"`
	OriginalPath string    `json:"original_path"`
	DeletedAt    time.Time `json:"deleted_at"`
	Reason       string    `json:"reason,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Size         int64     `json:"size"`
	IsDir        bool      `json:"is_dir"`
}

// Entry pairs metadata with its on-disk content path, for list_trash.
type Entry struct {
	Metadata
	ContentPath string `json:"-"`
}

// Store manages the on-disk trash directory.
type Store struct {
	dir string
}

// New creates a trash store rooted at dir (typically
// <project>/.gofer/trash).
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) entryDir(id string) string      { return filepath.Join(s.dir, id) }
func (s *Store) metadataPath(id string) string  { return filepath.Join(s.entryDir(id), "metadata.json") }
func (s *Store) contentPath(id string) string    { return filepath.Join(s.entryDir(id), "content") }

// DeleteSafe moves path into the trash, returning the new entry's metadata.
func (s *Store) DeleteSafe(path, reason string, tags []string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("trash: stat %s: %w", path, err)
	}

	size, err := dirSize(path, info)
	if err != nil {
		return nil, fmt.Errorf("trash: compute size of %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(s.entryDir(id), 0755); err != nil {
		return nil, fmt.Errorf("trash: create entry dir: %w", err)
	}

	meta := &Metadata{
		UUID:         id,
		OriginalPath: path,
		DeletedAt:    time.Now(),
		Reason:       reason,
		Tags:         tags,
		Size:         size,
		IsDir:        info.IsDir(),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("trash: marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(id), data, 0644); err != nil {
		return nil, fmt.Errorf("trash: write metadata: %w", err)
	}

	if err := os.Rename(path, s.contentPath(id)); err != nil {
		os.RemoveAll(s.entryDir(id))
		return nil, fmt.Errorf("trash: move %s into trash: %w", path, err)
	}

	logging.Trash("delete_safe: %s -> %s (%d bytes)", path, id, size)
	return meta, nil
}

// List scans entries, skipping malformed ones, sorted by UUID descending.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("trash: read trash dir: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		id := de.Name()

		data, err := os.ReadFile(s.metadataPath(id))
		if err != nil {
			logging.TrashWarn("list: skipping malformed entry %s: %v", id, err)
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			logging.TrashWarn("list: skipping malformed entry %s: %v", id, err)
			continue
		}

		entries = append(entries, Entry{Metadata: meta, ContentPath: s.contentPath(id)})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].UUID > entries[j].UUID })
	return entries, nil
}

// Restore moves the entry's content back to target (or its original path
// if target is empty). Refuses to clobber an existing target.
func (s *Store) Restore(id, target string) (string, error) {
	data, err := os.ReadFile(s.metadataPath(id))
	if err != nil {
		return "", fmt.Errorf("trash: read metadata for %s: %w", id, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("trash: parse metadata for %s: %w", id, err)
	}

	dest := target
	if dest == "" {
		dest = meta.OriginalPath
	}

	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("trash: restore target %s already exists", dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("trash: create parent dirs for %s: %w", dest, err)
	}

	if err := os.Rename(s.contentPath(id), dest); err != nil {
		return "", fmt.Errorf("trash: restore %s: %w", id, err)
	}

	os.RemoveAll(s.entryDir(id))

	logging.Trash("restore: %s -> %s", id, dest)
	return dest, nil
}

// Purge deletes one entry (id non-empty) or all entries, returning the
// count removed and total bytes freed.
func (s *Store) Purge(id string) (count int, freedBytes int64, err error) {
	if id != "" {
		data, rerr := os.ReadFile(s.metadataPath(id))
		if rerr != nil {
			return 0, 0, fmt.Errorf("trash: read metadata for %s: %w", id, rerr)
		}
		var meta Metadata
		_ = json.Unmarshal(data, &meta)

		if rerr := os.RemoveAll(s.entryDir(id)); rerr != nil {
			return 0, 0, fmt.Errorf("trash: purge %s: %w", id, rerr)
		}
		logging.Trash("purge: %s (%d bytes)", id, meta.Size)
		return 1, meta.Size, nil
	}

	entries, lerr := s.List()
	if lerr != nil {
		return 0, 0, lerr
	}
	for _, e := range entries {
		if rerr := os.RemoveAll(s.entryDir(e.UUID)); rerr != nil {
			return count, freedBytes, fmt.Errorf("trash: purge all, failed on %s: %w", e.UUID, rerr)
		}
		count++
		freedBytes += e.Size
	}
	logging.Trash("purge: all %d entries (%d bytes)", count, freedBytes)
	return count, freedBytes, nil
}

func dirSize(path string, info os.FileInfo) (int64, error) {
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err := filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}
