// Package project implements the minimal project registry gofer's core
// needs to back register_project/activate_project: a path-keyed table of
// known workspaces plus a liveness probe confirming a project's root and
// its .gofer state directory are still usable before activation. The full
// persisted registry schema (tags, history, per-project settings) is out
// of scope; this is the narrow surface the dispatcher exercises.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gofer-dev/gofer/internal/logging"
)

// ErrNotFound is returned when a project id is unknown to the registry.
var ErrNotFound = errors.New("project: not found")

// ErrNotLive is returned when activation's liveness probe fails: the root
// no longer exists or its .gofer directory isn't writable.
var ErrNotLive = errors.New("project: root not live")

// Status is a registered project's current lifecycle state.
type Status string

const (
	Registered Status = "registered"
	Active     Status = "active"
	Inactive   Status = "inactive"
)

// Project is one registered workspace.
type Project struct {
	ID           string    `json:"id"`
	Root         string    `json:"root"`
	DataDir      string    `json:"data_dir"`
	Status       Status    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
	ActivatedAt  time.Time `json:"activated_at,omitempty"`
}

// Registry holds every project gofer knows about in this process.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{projects: make(map[string]*Project)}
}

// Register adds a project rooted at root, deriving its id from the root's
// base name if id is empty. Re-registering an existing id refreshes its
// root and data dir rather than erroring, since a client restarting the
// daemon will naturally replay registration.
func (r *Registry) Register(id, root string) (*Project, error) {
	if id == "" {
		id = filepath.Base(root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project: resolve root: %w", err)
	}

	p := &Project{
		ID:           id,
		Root:         abs,
		DataDir:      filepath.Join(abs, ".gofer"),
		Status:       Registered,
		RegisteredAt: time.Now(),
	}

	r.mu.Lock()
	r.projects[id] = p
	r.mu.Unlock()

	logging.Server("project registered: id=%s root=%s", id, abs)
	return p, nil
}

// Get returns a registered project by id.
func (r *Registry) Get(id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// List returns every registered project.
func (r *Registry) List() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out
}

// Activate runs the liveness probe against id's root and, if it passes,
// marks the project Active and ensures its .gofer directory exists.
func (r *Registry) Activate(id string) (*Project, error) {
	return r.ActivateWithProgress(id, nil)
}

// ProgressFunc reports one step of a multi-step operation, 1-indexed
// against total.
type ProgressFunc func(step, total int, message string)

// ActivateWithProgress behaves like Activate but calls report (if non-nil)
// after each step of the liveness probe, so a caller wired to a
// daemon.ProgressTracker can stream $/progress notifications for it. The
// probe itself is a handful of syscalls against a local filesystem and
// normally completes well under the progress sample interval; the steps
// exist for projects rooted on a slow or network-backed filesystem, where
// os.MkdirAll or the fsnotify watch can stall.
func (r *Registry) ActivateWithProgress(id string, report ProgressFunc) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := probeLiveReporting(p.Root, p.DataDir, report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotLive, err)
	}

	p.Status = Active
	p.ActivatedAt = time.Now()
	logging.Server("project activated: id=%s", id)
	return p, nil
}

// Deactivate marks a project Inactive without touching its on-disk state.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Status = Inactive
	logging.Server("project deactivated: id=%s", id)
	return nil
}

// probeLiveSteps is the total step count probeLiveReporting reports
// against, one per stage of the liveness check.
const probeLiveSteps = 4

// probeLiveReporting confirms root exists and dataDir can be created/
// written to, using an fsnotify watcher as the liveness signal: a watch
// that succeeds against a freshly-created directory proves the filesystem
// backing it is currently mounted and responsive, not merely present in a
// stale stat cache. report is called after each stage when non-nil.
func probeLiveReporting(root, dataDir string, report ProgressFunc) error {
	step := func(n int, msg string) {
		if report != nil {
			report(n, probeLiveSteps, msg)
		}
	}

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err != nil {
			return err
		}
		return fmt.Errorf("root is not a directory: %s", root)
	}
	step(1, "checked project root")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	step(2, "prepared data directory")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dataDir); err != nil {
		return fmt.Errorf("watch data dir: %w", err)
	}
	step(3, "confirmed filesystem is live")

	probe := filepath.Join(dataDir, ".liveness_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("write probe file: %w", err)
	}
	defer os.Remove(probe)
	step(4, "activated")

	return nil
}
