package entity

import "strings"

type SearchStrategy string

const (
	StrategyVectorOnly SearchStrategy = "VECTOR_ONLY"
	StrategyHybrid     SearchStrategy = "HYBRID"
	StrategyBM25Only   SearchStrategy = "BM25_ONLY"
)

// ParseSearchStrategy is case-insensitive; empty input yields the default strategy
func ParseSearchStrategy(s string, def SearchStrategy) (SearchStrategy, error) {
	if s == "" {
		return def, nil
	}
	switch st := SearchStrategy(strings.ToUpper(s)); st {
	case StrategyVectorOnly, StrategyHybrid, StrategyBM25Only:
		return st, nil
	default:
		return "", ErrInvalidParameter
	}
}

type QueryRequest struct {
	Query    string         `json:"query"`
	TopK     int            `json:"top_k,omitempty"`
	Strategy SearchStrategy `json:"strategy,omitempty"`
	Filters  map[string]any `json:"filters,omitempty"`
	MinScore float64        `json:"min_score,omitempty"`
}

type QueryTimings struct {
	EmbeddingMs  int64 `json:"embedding_ms"`
	SearchMs     int64 `json:"search_ms"`
	GenerationMs int64 `json:"generation_ms"`
	TotalMs      int64 `json:"total_ms"`
}

type RagAnswer struct {
	Query           string         `json:"query"`
	Answer          string         `json:"answer"`
	Context         string         `json:"context"`
	Sources         []string       `json:"sources"`
	RetrievedChunks int            `json:"retrieved_chunks"`
	Strategy        SearchStrategy `json:"strategy"`
	Timings         QueryTimings   `json:"timings"`
}

// RetrievedContext is the retrieval half of a query, before generation
type RetrievedContext struct {
	Chunks  []ScoredChunk
	Context string
	Sources []string
}

const (
	HealthUp       = "UP"
	HealthDegraded = "DEGRADED"
)

type HealthStatus struct {
	Status      string `json:"status"`
	IndexedDocs int64  `json:"indexed_chunks"`
	Backend     string `json:"backend"`
	Generator   string `json:"generator"`
}
