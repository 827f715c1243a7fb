// Package search implements the hybrid retrieval engine: dense vector
// search fused with full-text keyword search via Reciprocal Rank Fusion,
// optional reranking, glob filtering, and a TTL result cache.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofer-dev/gofer/internal/breaker"
	"github.com/gofer-dev/gofer/internal/cache"
	"github.com/gofer-dev/gofer/internal/embedding"
	"github.com/gofer-dev/gofer/internal/logging"
	"github.com/gofer-dev/gofer/internal/store"
)

// rrfK is the Reciprocal Rank Fusion smoothing constant.
const rrfK = 60

// ErrEmptyQuery is returned when Search is called with a blank query.
var ErrEmptyQuery = errors.New("search: query must not be empty")

// MatchReason tags why a hit matched, used for result shaping.
type MatchReason string

const (
	ReasonSymbolName     MatchReason = "SymbolName"
	ReasonClassName      MatchReason = "ClassName"
	ReasonFunctionName   MatchReason = "FunctionName"
	ReasonTypeDefinition MatchReason = "TypeDefinition"
	ReasonDocComment     MatchReason = "DocComment"
	ReasonImportStatement MatchReason = "ImportStatement"
	ReasonCodeContent    MatchReason = "CodeContent"
)

// Hit is one fused, normalized search result.
type Hit struct {
	FilePath     string      `json:"file_path"`
	StartLine    int         `json:"start_line"`
	Content      string      `json:"content"`
	Score        float64     `json:"score"`
	VectorScore  float64     `json:"vector_score,omitempty"`
	MatchedSymbol string     `json:"matched_symbol,omitempty"`
	MatchReason  MatchReason `json:"match_reason,omitempty"`
	Preview      string      `json:"preview,omitempty"`
	ContextName  string      `json:"context_name,omitempty"`
}

// Result is the packaged response of a Search call.
type Result struct {
	Query         string   `json:"query"`
	TotalResults  int      `json:"total_results"`
	Results       []Hit    `json:"results"`
	SearchTimeMs  int64    `json:"search_time_ms"`
	Degraded      bool     `json:"degraded,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Params configures a single Search call.
type Params struct {
	Query       string
	Limit       int
	PathFilter  string
	Glob        string
	MinScore    float64
	WithPreview bool
	WithContext bool
}

// Reranker re-orders the fused top results using an external model,
// returning the same hits in its preferred order.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []Hit) ([]Hit, error)
}

// Engine ties together the embedder, the indexed store, and an optional
// reranker behind circuit breakers, with a shared result cache.
type Engine struct {
	st              *store.Store
	embedder        embedding.EmbeddingEngine
	reranker        Reranker
	embeddingBreaker *breaker.Breaker
	vectorBreaker    *breaker.Breaker
	cache           *cache.Cache
}

// New creates a search engine. embedder and reranker may be nil to run in
// keyword-only mode.
func New(st *store.Store, embedder embedding.EmbeddingEngine, reranker Reranker, resultCache *cache.Cache) *Engine {
	return &Engine{
		st:               st,
		embedder:         embedder,
		reranker:         reranker,
		embeddingBreaker: breaker.New(breaker.Config{Name: "embedding"}),
		vectorBreaker:    breaker.New(breaker.Config{Name: "vector-store"}),
		cache:            resultCache,
	}
}

// Search runs the full hybrid retrieval pipeline per params.
func (e *Engine) Search(ctx context.Context, params Params) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(params.Query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	topK := limit * 2

	if cached, ok := e.cache.GetSearch(cache.SearchKey{Query: params.Query, Limit: limit}); ok {
		var result Result
		if err := json.Unmarshal(cached, &result); err == nil {
			logging.RetrievalDebug("search: cache hit for %q limit=%d", params.Query, limit)
			return &result, nil
		}
	}

	var degraded bool
	var warnings []string

	var queryEmbedding []float32
	if e.embedder != nil {
		emb, err := breaker.CallValue(ctx, e.embeddingBreaker, func(ctx context.Context) ([]float32, error) {
			return e.embedder.Embed(ctx, params.Query)
		})
		if err != nil {
			degraded = true
			warnings = append(warnings, fmt.Sprintf("embedding unavailable: %v", err))
			logging.RetrievalWarn("search: embedding failed: %v", err)
		} else {
			queryEmbedding = emb
		}
	}

	type rankedHit struct {
		Hit
		rank int
	}

	scores := make(map[string]float64)
	order := make(map[string]*Hit)
	var firstSeenOrder []string

	recordRank := func(lists [][]rankedHit) {
		for _, list := range lists {
			for _, rh := range list {
				key := fmt.Sprintf("%s:%d", rh.FilePath, rh.StartLine)
				if _, exists := order[key]; !exists {
					h := rh.Hit
					order[key] = &h
					firstSeenOrder = append(firstSeenOrder, key)
				}
				scores[key] += 1.0 / float64(rrfK+rh.rank+1)
				if rh.VectorScore != 0 && order[key].VectorScore == 0 {
					order[key].VectorScore = rh.VectorScore
				}
				if rh.MatchedSymbol != "" && order[key].MatchedSymbol == "" {
					order[key].MatchedSymbol = rh.MatchedSymbol
				}
			}
		}
	}

	var vectorRanked []rankedHit
	if queryEmbedding != nil {
		vecHits, err := breaker.CallValue(ctx, e.vectorBreaker, func(ctx context.Context) ([]store.VectorHit, error) {
			return e.st.VectorSearch(ctx, queryEmbedding, topK, params.PathFilter)
		})
		if err != nil {
			degraded = true
			warnings = append(warnings, fmt.Sprintf("vector retrieval unavailable: %v", err))
			logging.RetrievalWarn("search: vector retrieval failed: %v", err)
		} else {
			for i, vh := range vecHits {
				vectorRanked = append(vectorRanked, rankedHit{
					Hit: Hit{FilePath: vh.FilePath, StartLine: vh.StartLine, Content: vh.Content, VectorScore: vh.Score},
					rank: i,
				})
			}
		}
	}

	tokens := tokenizeQuery(params.Query)
	var keywordRanked []rankedHit
	kwHits, err := e.st.KeywordSearch(ctx, tokens, topK, params.PathFilter)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("keyword retrieval unavailable: %v", err))
		logging.RetrievalWarn("search: keyword retrieval failed: %v", err)
	} else {
		for i, kh := range kwHits {
			keywordRanked = append(keywordRanked, rankedHit{
				Hit: Hit{FilePath: kh.FilePath, StartLine: kh.StartLine, Content: kh.Content},
				rank: i,
			})
		}
	}

	recordRank([][]rankedHit{vectorRanked, keywordRanked})

	fused := make([]Hit, 0, len(firstSeenOrder))
	for _, key := range firstSeenOrder {
		h := *order[key]
		h.Score = scores[key]
		fused = append(fused, h)
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if len(fused) > topK {
		fused = fused[:topK]
	}

	if e.reranker != nil && len(fused) > 0 {
		reranked, err := e.reranker.Rerank(ctx, params.Query, fused)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("rerank failed: %v", err))
			logging.RetrievalWarn("search: rerank failed: %v", err)
		} else {
			fused = reranked
		}
	}

	if params.Glob != "" {
		fused = filterByGlob(fused, params.Glob)
		if len(fused) > topK {
			fused = fused[:topK]
		}
	}

	topScore := 0.0
	for _, h := range fused {
		if h.Score > topScore {
			topScore = h.Score
		}
	}
	for i := range fused {
		if topScore > 0 {
			fused[i].Score = fused[i].Score / topScore
		}
		fused[i].MatchReason = classifyMatchReason(fused[i].Content, tokens)
		if params.WithPreview {
			fused[i].Preview = preview(fused[i].Content, 3)
		}
		if params.WithContext {
			fused[i].ContextName = extractContextName(fused[i].Content)
		}
	}

	filtered := fused[:0]
	for _, h := range fused {
		if h.Score >= params.MinScore {
			filtered = append(filtered, h)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	result := &Result{
		Query:        params.Query,
		TotalResults: len(filtered),
		Results:      filtered,
		SearchTimeMs: time.Since(start).Milliseconds(),
		Degraded:     degraded,
		Warnings:     warnings,
	}

	if !degraded {
		if blob, err := json.Marshal(result); err == nil {
			e.cache.PutSearch(cache.SearchKey{Query: params.Query, Limit: limit}, blob)
		}
	}

	logging.Retrieval("search %q: %d results (degraded=%v) in %dms", params.Query, len(filtered), degraded, result.SearchTimeMs)
	return result, nil
}

func tokenizeQuery(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func filterByGlob(hits []Hit, pattern string) []Hit {
	var out []Hit
	for _, h := range hits {
		if ok, _ := filepath.Match(pattern, filepath.Base(h.FilePath)); ok {
			out = append(out, h)
		}
	}
	return out
}

var (
	classPattern    = regexp.MustCompile(`(?i)^\s*(class|struct|interface)\s+\w+`)
	funcPattern     = regexp.MustCompile(`(?i)^\s*(func|def|function)\s+\w+`)
	typePattern     = regexp.MustCompile(`(?i)^\s*type\s+\w+`)
	docPattern      = regexp.MustCompile(`^\s*(//|#|\*|"""|/\*)`)
	importPattern   = regexp.MustCompile(`(?i)^\s*(import|from|use|require)\b`)
)

// classifyMatchReason applies lexical heuristics to the first line of
// content to decide why a hit is relevant.
func classifyMatchReason(content string, tokens []string) MatchReason {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}

	switch {
	case classPattern.MatchString(firstLine):
		return ReasonClassName
	case funcPattern.MatchString(firstLine):
		return ReasonFunctionName
	case typePattern.MatchString(firstLine):
		return ReasonTypeDefinition
	case docPattern.MatchString(firstLine):
		return ReasonDocComment
	case importPattern.MatchString(firstLine):
		return ReasonImportStatement
	}

	lower := strings.ToLower(content)
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return ReasonSymbolName
		}
	}
	return ReasonCodeContent
}

func preview(content string, lines int) string {
	split := strings.Split(content, "\n")
	if len(split) > lines {
		split = split[:lines]
	}
	return strings.Join(split, "\n")
}

func extractContextName(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if m := funcPattern.FindString(line); m != "" {
			return strings.TrimSpace(m)
		}
		if m := classPattern.FindString(line); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
