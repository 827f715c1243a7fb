// Package langservice defines the capability interface gofer's dispatcher
// uses to reach language-specific analysis without calling back into the
// dispatcher synchronously, per spec.md §9's cyclic-graph note: the
// dispatcher owns a list of LanguageService handles, and each service
// returns structured text the dispatcher wraps, rather than invoking
// dispatcher verbs itself.
package langservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownLanguage is returned when no registered service claims a
// language name.
var ErrUnknownLanguage = errors.New("langservice: unknown language")

// ToolInfo describes one capability a LanguageService exposes through the
// lang_tools_list meta-verb.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LanguageService is the capability interface a per-language analyzer
// implements. Real analyzers (tree-sitter-backed, LSP-backed) are external
// collaborators; gofer ships only the Go stdlib-backed stub below.
type LanguageService interface {
	// Language returns the language name this service claims (e.g. "go").
	Language() string

	// Tools lists the lang_tools_call-callable capabilities this service
	// exposes.
	Tools() []ToolInfo

	// Call invokes one named capability with raw JSON-decoded arguments
	// and returns plain text the dispatcher wraps into a tools/call-style
	// content block.
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
}

// Registry resolves a language name to its registered LanguageService.
type Registry struct {
	mu       sync.RWMutex
	services map[string]LanguageService
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]LanguageService)}
}

// Register adds a service, replacing any existing registration for the
// same language.
func (r *Registry) Register(svc LanguageService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.Language()] = svc
}

// Get returns the service registered for a language.
func (r *Registry) Get(language string) (LanguageService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}
	return svc, nil
}

// List returns every registered service, for lang_tools_list when no
// specific language is requested.
func (r *Registry) List() []LanguageService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LanguageService, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out
}
