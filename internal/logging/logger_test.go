package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeLoggingConfig(t *testing.T, dataDir, content string) {
	t.Helper()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("create data dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "logging.json"), []byte(content), 0644); err != nil {
		t.Fatalf("write logging config: %v", err)
	}
}

func resetLoggingState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	dataDir = ""
	configLoaded = false
	config = loggingConfig{}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "gofer_logging_test")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dataDir := filepath.Join(tempDir, ".gofer")
	writeLoggingConfig(t, dataDir, `{
		"logging": {
			"level": "debug",
			"debug_mode": true
		}
	}`)

	resetLoggingState()
	if err := Initialize(dataDir); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("init audit: %v", err)
	}

	if !IsDebugMode() {
		t.Fatal("expected debug mode enabled")
	}

	categories := []Category{
		CategoryBoot, CategoryServer, CategoryTools, CategoryStore,
		CategoryRetrieval, CategoryTxn, CategoryVerify, CategoryCAS,
		CategoryTrash, CategoryBreaker, CategoryEmbedding, CategoryLangService,
		CategoryProject,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("info message for %s", cat)
		logger.Debug("debug message for %s", cat)
		logger.Warn("warn message for %s", cat)
		logger.Error("error message for %s", cat)
	}

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(dataDir, "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("no log file found for category: %s", cat)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "gofer_logging_test_disabled")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dataDir := filepath.Join(tempDir, ".gofer")
	writeLoggingConfig(t, dataDir, `{"logging": {"level": "debug", "debug_mode": false}}`)

	resetLoggingState()
	if err := Initialize(dataDir); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if IsDebugMode() {
		t.Fatal("expected debug mode disabled")
	}
	if IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be disabled when debug_mode=false")
	}

	Boot("should not be logged")
	logger := Get(CategoryBoot)
	logger.Info("should not be logged")

	CloseAll()

	logsPath := filepath.Join(dataDir, "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("expected no log files in production mode, found %d", len(entries))
		}
	} else if !os.IsNotExist(err) {
		t.Fatalf("stat logs dir: %v", err)
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "gofer_logging_test_category")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dataDir := filepath.Join(tempDir, ".gofer")
	writeLoggingConfig(t, dataDir, `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"breaker": false
			}
		}
	}`)

	resetLoggingState()
	if err := Initialize(dataDir); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if IsCategoryEnabled(CategoryBreaker) {
		t.Error("breaker should be disabled")
	}
	if !IsCategoryEnabled(CategoryTools) {
		t.Error("tools (not in config) should default to enabled")
	}

	Boot("should be logged")
	Breaker("should not be logged")
	Tools("should be logged (default enabled)")

	CloseAll()

	logsPath := filepath.Join(dataDir, "logs")
	entries, _ := os.ReadDir(logsPath)

	hasBoot, hasBreaker := false, false
	for _, e := range entries {
		if strings.Contains(e.Name(), "boot") {
			hasBoot = true
		}
		if strings.Contains(e.Name(), "breaker") {
			hasBreaker = true
		}
	}
	if !hasBoot {
		t.Error("expected boot log file")
	}
	if hasBreaker {
		t.Error("should not have breaker log file (disabled)")
	}
}

func TestTimerLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "gofer_logging_test_timer")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dataDir := filepath.Join(tempDir, ".gofer")
	writeLoggingConfig(t, dataDir, `{"logging": {"level": "debug", "debug_mode": true}}`)

	resetLoggingState()
	if err := Initialize(dataDir); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	timer := StartTimer(CategoryStore, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("timer should have recorded non-zero duration")
	}

	CloseAll()
}
