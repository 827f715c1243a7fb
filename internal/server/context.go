package server

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gofer-dev/gofer/internal/daemon"
	"github.com/gofer-dev/gofer/internal/project"
	"github.com/gofer-dev/gofer/internal/ratelimit"
	"github.com/gofer-dev/gofer/internal/tools"
)

// Context bundles every piece of process-wide shared state the accept
// loop, connection handlers, and dispatcher need. It replaces the lazily
// initialised singletons a quick port would reach for: every collaborator
// is an explicit field, constructed once at startup and passed down.
type Context struct {
	SocketPath string

	Registry  *tools.Registry
	Projects  *project.Registry
	Metrics   *daemon.Metrics
	Progress  *daemon.ProgressTracker
	Broadcast *daemon.Broadcast
	Shutdown  *daemon.Shutdown

	// ConnSemaphore bounds concurrently open connections.
	ConnSemaphore *semaphore.Weighted

	// RequestPermits bounds concurrently in-flight tool dispatches across
	// every connection.
	RequestPermits *semaphore.Weighted

	// HeavyCooldown gates process-wide heavy verbs (reindex, verify_patch).
	HeavyCooldown *ratelimit.CooldownGate

	// RateLimitPerConn and RateLimitWindow configure each new connection's
	// per-connection sliding-window limiter.
	RateLimitPerConn int
	RateLimitWindow  time.Duration

	IdleTimeout  time.Duration
	MaxBatchSize int
}

// NewContext builds a Context with the given static limits and fresh
// Metrics, Progress, Broadcast and Shutdown values. Registry and Projects
// must be set by the caller before ListenAndServe is invoked.
func NewContext(socketPath string, maxConns, maxPermits int) *Context {
	return &Context{
		SocketPath:       socketPath,
		Metrics:          daemon.NewMetrics(),
		Progress:         daemon.NewProgressTracker(),
		Broadcast:        daemon.NewBroadcast(),
		Shutdown:         daemon.NewShutdown(context.Background()),
		ConnSemaphore:    semaphore.NewWeighted(int64(maxConns)),
		RequestPermits:   semaphore.NewWeighted(int64(maxPermits)),
		HeavyCooldown:    ratelimit.NewCooldownGate(2 * time.Second),
		RateLimitPerConn: 100,
		RateLimitWindow:  time.Second,
		IdleTimeout:      300 * time.Second,
		MaxBatchSize:     64,
	}
}
