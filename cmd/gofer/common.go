package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofer-dev/gofer/internal/bootstrap"
	"github.com/gofer-dev/gofer/internal/config"
)

// resolveWorkspace returns the absolute workspace root, defaulting to the
// current directory when --workspace is unset.
func resolveWorkspace() (string, error) {
	ws := workspace
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return ws, nil
	}
	return filepath.Abs(ws)
}

// resolveConfigPath returns the config file path, defaulting to
// <workspace>/.gofer/config.yaml when --config is unset.
func resolveConfigPath(root string) string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(root, ".gofer", "config.yaml")
}

// loadApp loads config and assembles every collaborator via
// internal/bootstrap, the one place the full daemon graph is constructed.
func loadApp() (*bootstrap.App, error) {
	root, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(resolveConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.New(cfg, root)
}
