// Package verify implements sandboxed patch verification: compiling or
// linting a candidate file's full contents against an overlay view of the
// workspace without ever mutating the real tree.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofer-dev/gofer/internal/logging"
)

// Status values for a verification result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Diagnostic is one machine-readable finding from a checker, normalized
// across cargo/tsc/ruff's native output formats.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Result is the outcome of a verification attempt.
type Result struct {
	Status      string       `json:"status"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     string       `json:"summary"`
}

var excludedTopLevel = map[string]bool{
	"target":       true,
	".git":         true,
	".gofer":       true,
	"node_modules": true,
}

// buildArtifactDirs maps a checker family to the cache directory worth
// reusing inside the overlay, if present.
var buildArtifactDirs = map[string]string{
	"rust": "target",
	"ts":   "node_modules",
}

// Verifier serializes and rate-limits patch verification calls. A single
// instance is meant to be shared process-wide.
type Verifier struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastRun  time.Time
}

// New creates a verifier with the given minimum interval between runs.
func New(cooldown time.Duration) *Verifier {
	if cooldown <= 0 {
		cooldown = 3 * time.Second
	}
	return &Verifier{cooldown: cooldown}
}

// Verify checks candidate contents for relPath against an overlay of
// repoRoot, returning structured diagnostics without touching the
// workspace.
func (v *Verifier) Verify(ctx context.Context, repoRoot, relPath string, candidate []byte) (*Result, error) {
	v.mu.Lock()
	if !v.lastRun.IsZero() && time.Since(v.lastRun) < v.cooldown {
		v.mu.Unlock()
		logging.Verify("skipped: cooldown active for %s", relPath)
		return &Result{Status: StatusSkipped, Summary: "verification cooldown active"}, nil
	}
	v.lastRun = time.Now()
	defer v.mu.Unlock()

	checker := checkerFor(relPath)
	if checker == nil {
		return &Result{Status: StatusSkipped, Summary: fmt.Sprintf("no checker for extension of %s", relPath)}, nil
	}

	overlay, cleanup, err := buildOverlay(repoRoot, relPath, candidate, checker.family)
	if err != nil {
		return nil, fmt.Errorf("verify: build overlay: %w", err)
	}
	defer cleanup()

	diags, summary, err := checker.run(ctx, overlay, relPath)
	if err != nil {
		if isMissingTool(err) {
			logging.VerifyWarn("skipped: checker %s unavailable: %v", checker.family, err)
			return &Result{Status: StatusSkipped, Summary: fmt.Sprintf("checker unavailable: %v", err)}, nil
		}
		logging.VerifyError("checker %s crashed: %v", checker.family, err)
		return &Result{
			Status: StatusError,
			Diagnostics: []Diagnostic{{
				File:     relPath,
				Severity: "error",
				Message:  fmt.Sprintf("checker invocation failed: %v", err),
			}},
			Summary: "checker invocation failed",
		}, nil
	}

	filtered := filterDiagnostics(diags, relPath, checker.family)
	status := StatusSuccess
	if len(filtered) > 0 {
		status = StatusError
	}
	if summary == "" {
		summary = fmt.Sprintf("%d diagnostic(s)", len(filtered))
	}

	logging.Verify("verified %s via %s: status=%s diagnostics=%d", relPath, checker.family, status, len(filtered))
	return &Result{Status: status, Diagnostics: filtered, Summary: summary}, nil
}

type checker struct {
	family string
	run    func(ctx context.Context, overlayRoot, relPath string) ([]Diagnostic, string, error)
}

func checkerFor(relPath string) *checker {
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".rs":
		return &checker{family: "rust", run: runCargo}
	case ".ts", ".tsx", ".js", ".jsx", ".vue":
		return &checker{family: "ts", run: runTSC}
	case ".py":
		return &checker{family: "python", run: runPython}
	default:
		return nil
	}
}

func isMissingTool(err error) bool {
	var execErr *exec.Error
	if ok := asExecError(err, &execErr); ok {
		return execErr.Err == exec.ErrNotFound
	}
	return false
}

func asExecError(err error, target **exec.Error) bool {
	for err != nil {
		if e, ok := err.(*exec.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// buildOverlay constructs a temporary directory tree that symlinks the
// workspace except along the path to relPath, where real directories are
// substituted so the candidate contents can be written as a real file.
func buildOverlay(repoRoot, relPath string, candidate []byte, family string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "gofer-verify-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := symlinkSiblings(repoRoot, tmpDir, excludedTopLevel); err != nil {
		cleanup()
		return "", nil, err
	}

	if artifact, ok := buildArtifactDirs[family]; ok {
		src := filepath.Join(repoRoot, artifact)
		if info, statErr := os.Stat(src); statErr == nil && info.IsDir() {
			_ = os.Symlink(src, filepath.Join(tmpDir, artifact))
		}
	}

	segments := strings.Split(filepath.ToSlash(relPath), "/")
	currentReal := repoRoot
	currentOverlay := tmpDir

	for i, seg := range segments {
		isLast := i == len(segments)-1
		if isLast {
			if err := os.WriteFile(filepath.Join(currentOverlay, seg), candidate, 0644); err != nil {
				cleanup()
				return "", nil, fmt.Errorf("write candidate file: %w", err)
			}
			break
		}

		nextReal := filepath.Join(currentReal, seg)
		nextOverlayDir := filepath.Join(currentOverlay, seg)

		os.Remove(nextOverlayDir)
		if err := os.MkdirAll(nextOverlayDir, 0755); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("create overlay dir for %s: %w", seg, err)
		}

		except := map[string]bool{segments[i+1]: true}
		if err := symlinkSiblings(nextReal, nextOverlayDir, except); err != nil {
			cleanup()
			return "", nil, err
		}

		currentReal = nextReal
		currentOverlay = nextOverlayDir
	}

	return tmpDir, cleanup, nil
}

// symlinkSiblings symlinks every entry of srcDir into dstDir except names
// present in except.
func symlinkSiblings(srcDir, dstDir string, except map[string]bool) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if except[e.Name()] {
			continue
		}
		src := filepath.Join(srcDir, e.Name())
		dst := filepath.Join(dstDir, e.Name())
		if err := os.Symlink(src, dst); err != nil {
			return fmt.Errorf("symlink %s: %w", e.Name(), err)
		}
	}
	return nil
}

func filterDiagnostics(diags []Diagnostic, relPath, family string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if strings.HasSuffix(filepath.ToSlash(d.File), filepath.ToSlash(relPath)) {
			out = append(out, d)
			continue
		}
		if family == "rust" && d.File == "" {
			out = append(out, d)
		}
	}
	return out
}

// runCargo invokes `cargo check --message-format=json` at the overlay root.
func runCargo(ctx context.Context, overlayRoot, relPath string) ([]Diagnostic, string, error) {
	cmd := exec.CommandContext(ctx, "cargo", "check", "--message-format=json")
	cmd.Dir = overlayRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, "", runErr
		}
	}

	var diags []Diagnostic
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg struct {
			Reason  string `json:"reason"`
			Message struct {
				Message string `json:"message"`
				Level   string `json:"level"`
				Spans   []struct {
					FileName string `json:"file_name"`
					LineStart int   `json:"line_start"`
					ColumnStart int `json:"column_start"`
				} `json:"spans"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Reason != "compiler-message" {
			continue
		}
		if len(msg.Message.Spans) == 0 {
			diags = append(diags, Diagnostic{Severity: msg.Message.Level, Message: msg.Message.Message})
			continue
		}
		for _, span := range msg.Message.Spans {
			diags = append(diags, Diagnostic{
				File:     span.FileName,
				Line:     span.LineStart,
				Column:   span.ColumnStart,
				Severity: msg.Message.Level,
				Message:  msg.Message.Message,
			})
		}
	}
	return diags, "", nil
}

// runTSC invokes the TypeScript compiler in no-emit mode.
func runTSC(ctx context.Context, overlayRoot, relPath string) ([]Diagnostic, string, error) {
	cmd := exec.CommandContext(ctx, "npx", "--no-install", "tsc", "--noEmit", "--pretty", "false")
	cmd.Dir = overlayRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, "", runErr
		}
	}

	var diags []Diagnostic
	for _, line := range strings.Split(stdout.String(), "\n") {
		d, ok := parseTSCLine(line)
		if ok {
			diags = append(diags, d)
		}
	}
	return diags, "", nil
}

// parseTSCLine parses a line of the form:
// path/to/file.ts(12,5): error TS2322: message here
func parseTSCLine(line string) (Diagnostic, bool) {
	openParen := strings.Index(line, "(")
	if openParen < 0 {
		return Diagnostic{}, false
	}
	file := line[:openParen]
	rest := line[openParen+1:]
	closeParen := strings.Index(rest, ")")
	if closeParen < 0 {
		return Diagnostic{}, false
	}
	pos := rest[:closeParen]
	parts := strings.SplitN(pos, ",", 2)
	if len(parts) != 2 {
		return Diagnostic{}, false
	}
	lineNum, _ := strconv.Atoi(parts[0])
	col, _ := strconv.Atoi(parts[1])

	remainder := strings.TrimPrefix(rest[closeParen+1:], ":")
	remainder = strings.TrimSpace(remainder)
	severity := "error"
	if strings.HasPrefix(remainder, "warning") {
		severity = "warning"
	}

	return Diagnostic{File: file, Line: lineNum, Column: col, Severity: severity, Message: remainder}, true
}

// runPython runs ruff, falling back to py_compile if ruff isn't present.
func runPython(ctx context.Context, overlayRoot, relPath string) ([]Diagnostic, string, error) {
	cmd := exec.CommandContext(ctx, "ruff", "check", "--output-format=json", relPath)
	cmd.Dir = overlayRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if isMissingTool(runErr) {
			return runPyCompile(ctx, overlayRoot, relPath)
		}
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, "", runErr
		}
	}

	var entries []struct {
		Filename string `json:"filename"`
		Location struct {
			Row    int `json:"row"`
			Column int `json:"column"`
		} `json:"location"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		return nil, "", nil
	}

	var diags []Diagnostic
	for _, e := range entries {
		diags = append(diags, Diagnostic{
			File:     e.Filename,
			Line:     e.Location.Row,
			Column:   e.Location.Column,
			Severity: "error",
			Message:  fmt.Sprintf("%s: %s", e.Code, e.Message),
		})
	}
	return diags, "", nil
}

func runPyCompile(ctx context.Context, overlayRoot, relPath string) ([]Diagnostic, string, error) {
	cmd := exec.CommandContext(ctx, "python3", "-m", "py_compile", relPath)
	cmd.Dir = overlayRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil {
		if isMissingTool(runErr) {
			return nil, "", runErr
		}
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, "", runErr
		}
		return []Diagnostic{{
			File:     relPath,
			Severity: "error",
			Message:  strings.TrimSpace(stderr.String()),
		}}, "py_compile fallback", nil
	}
	return nil, "py_compile fallback (no syntax errors)", nil
}
