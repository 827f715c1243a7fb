// Package bootstrap assembles every collaborator a running gofer daemon
// needs — store, cache, embedding engine, search engine, CAS/trash/
// transaction stores, verifier, project registry, language-service
// registry, tool dispatcher, and the server.Context that ties them
// together — from a single config.Config. cmd/gofer calls this once per
// process; no other package constructs the full graph.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofer-dev/gofer/internal/cas"
	"github.com/gofer-dev/gofer/internal/cache"
	"github.com/gofer-dev/gofer/internal/config"
	"github.com/gofer-dev/gofer/internal/daemon"
	"github.com/gofer-dev/gofer/internal/embedding"
	"github.com/gofer-dev/gofer/internal/fileselect"
	"github.com/gofer-dev/gofer/internal/langservice"
	"github.com/gofer-dev/gofer/internal/logging"
	"github.com/gofer-dev/gofer/internal/project"
	"github.com/gofer-dev/gofer/internal/ratelimit"
	"github.com/gofer-dev/gofer/internal/retrieval"
	"github.com/gofer-dev/gofer/internal/search"
	"github.com/gofer-dev/gofer/internal/server"
	"github.com/gofer-dev/gofer/internal/store"
	"github.com/gofer-dev/gofer/internal/tools"
	"github.com/gofer-dev/gofer/internal/tools/buffer"
	"github.com/gofer-dev/gofer/internal/tools/codedom"
	"github.com/gofer-dev/gofer/internal/tools/contexttool"
	"github.com/gofer-dev/gofer/internal/tools/core"
	"github.com/gofer-dev/gofer/internal/tools/editplane"
	"github.com/gofer-dev/gofer/internal/tools/fileselecttool"
	"github.com/gofer-dev/gofer/internal/tools/indextool"
	"github.com/gofer-dev/gofer/internal/tools/langtool"
	"github.com/gofer-dev/gofer/internal/tools/sandboxtool"
	"github.com/gofer-dev/gofer/internal/tools/searchtool"
	"github.com/gofer-dev/gofer/internal/tools/shell"
	"github.com/gofer-dev/gofer/internal/tools/trashbin"
	"github.com/gofer-dev/gofer/internal/trash"
	"github.com/gofer-dev/gofer/internal/txn"
	"github.com/gofer-dev/gofer/internal/verify"
)

// App holds every long-lived collaborator plus the root directory it was
// built for, so cmd/gofer's `serve` can reach past the Context when it
// needs direct access to a collaborator.
type App struct {
	Config *config.Config
	Root   string

	Store    *store.Store
	Embedder embedding.EmbeddingEngine
	Search   *search.Engine
	Selector *fileselect.Selector
	CAS      *cas.Store
	Trash    *trash.Store
	Txn      *txn.Manager
	Verifier *verify.Verifier
	Projects *project.Registry
	LangSvcs *langservice.Registry
	Registry *tools.Registry
	Context  *server.Context
}

// New builds every collaborator named by cfg and returns the assembled
// App. Construction never dials Ollama — only the first embed call does —
// so an unreachable embedding backend degrades search to keyword-only at
// query time rather than failing daemon startup.
func New(cfg *config.Config, root string) (*App, error) {
	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(root, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("bootstrap: create data dir %s: %w", dataDir, err)
	}
	if err := logging.Initialize(dataDir); err != nil {
		logging.BootError("failed to initialize file logging: %v", err)
	}

	dbPath := cfg.Store.DatabasePath
	if dbPath != ":memory:" && !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	st, err := store.Open(dbPath, cfg.Store.VectorDimension)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
	})
	if err != nil {
		logging.BootError("embedding engine unavailable, search runs keyword-only: %v", err)
		embedder = nil
	}

	resultCache := cache.New(cfg.CacheTTL(), cfg.Cache.Capacity)
	searchEngine := search.New(st, embedder, nil, resultCache)
	selector := fileselect.New(st, embedder)

	casStore := cas.New(cfg.CASTTL())
	trashDir := cfg.Trash.Dir
	if !filepath.IsAbs(trashDir) {
		trashDir = filepath.Join(root, trashDir)
	}
	trashStore := trash.New(trashDir)
	txnMgr := txn.New(root)
	verifier := verify.New(cfg.BreakerCooldown())

	projects := project.New()
	langSvcs := langservice.NewRegistry()
	for _, name := range cfg.LangServer.Enabled {
		if name == "go" {
			langSvcs.Register(langservice.NewGoService())
		}
	}

	progress := daemon.NewProgressTracker()
	contextBuilder := retrieval.NewTieredContextBuilder(retrieval.DefaultTieredContextConfig(root))

	registry := tools.NewRegistry()
	registrars := []func(*tools.Registry) error{
		core.RegisterAll,
		codedom.RegisterAll,
		shell.RegisterAll,
		func(r *tools.Registry) error { return buffer.RegisterAll(r, casStore) },
		func(r *tools.Registry) error { return trashbin.RegisterAll(r, trashStore) },
		func(r *tools.Registry) error { return editplane.RegisterAll(r, txnMgr) },
		func(r *tools.Registry) error { return searchtool.RegisterAll(r, searchEngine) },
		func(r *tools.Registry) error { return fileselecttool.RegisterAll(r, selector) },
		func(r *tools.Registry) error { return sandboxtool.RegisterAll(r, verifier, root) },
		func(r *tools.Registry) error { return indextool.RegisterAll(r, st, progress, root) },
		func(r *tools.Registry) error { return langtool.RegisterAll(r, langSvcs) },
		func(r *tools.Registry) error { return contexttool.RegisterAll(r, contextBuilder, langSvcs) },
	}
	for _, reg := range registrars {
		if err := reg(registry); err != nil {
			return nil, fmt.Errorf("bootstrap: register tools: %w", err)
		}
	}

	socketPath := cfg.Socket
	if !filepath.IsAbs(socketPath) {
		socketPath = filepath.Join(root, socketPath)
	}

	srvCtx := server.NewContext(socketPath, cfg.Server.MaxConnections, cfg.Server.MaxInFlightPerConn)
	srvCtx.Progress = progress
	srvCtx.Registry = registry
	srvCtx.Projects = projects
	srvCtx.RateLimitPerConn = cfg.RateLimit.RequestsPerSecond
	srvCtx.RateLimitWindow = cfg.RateLimitWindow()
	srvCtx.IdleTimeout = cfg.IdleTimeout()
	srvCtx.MaxBatchSize = cfg.Server.MaxBatchSize
	srvCtx.HeavyCooldown = ratelimit.NewCooldownGate(cfg.HeavyVerbCooldown())

	if _, err := projects.Register("default", root); err != nil {
		return nil, fmt.Errorf("bootstrap: register default project: %w", err)
	}

	return &App{
		Config:   cfg,
		Root:     root,
		Store:    st,
		Embedder: embedder,
		Search:   searchEngine,
		Selector: selector,
		CAS:      casStore,
		Trash:    trashStore,
		Txn:      txnMgr,
		Verifier: verifier,
		Projects: projects,
		LangSvcs: langSvcs,
		Registry: registry,
		Context:  srvCtx,
	}, nil
}

// Close releases every collaborator holding an OS resource.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
