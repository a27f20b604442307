// Package elasticsearch stores chunks in an Elasticsearch index and scores them with
// script_score over a dense_vector field.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	pkghttp "github.com/erkion1127/ds-ai2/pkg/http"
)

const (
	cosineScript = "cosineSimilarity(params.query_vector, 'embedding') + 1.0"
	// script scores must be non-negative, so hybrid similarity below zero never counts
	similarityScript = "Math.max(cosineSimilarity(params.query_vector, 'embedding'), 0.0)"
	// min_score is inclusive, the baseline is not
	baselineEpsilon = 1e-6
)

var _ vectorstore.Index = &Index{}

type Config struct {
	IndexName          string
	Dimensions         int
	SimilarityBaseline float64
}

type Index struct {
	connector *pkghttp.Connector
	cfg       Config

	mu    sync.Mutex
	ready bool
}

func NewIndex(connector *pkghttp.Connector, cfg Config) *Index {
	return &Index{
		connector: connector,
		cfg:       cfg,
	}
}

func (i *Index) Name() string { return "elasticsearch" }

type document struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"document_id"`
	Content       string         `json:"content"`
	ChunkIndex    int            `json:"chunk_index"`
	StartPosition int            `json:"start_position"`
	EndPosition   int            `json:"end_position"`
	ContentHash   string         `json:"content_hash"`
	ChunkType     string         `json:"chunk_type"`
	Embedding     []float32      `json:"embedding,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func toDocument(c entity.Chunk) document {
	return document{
		ID:            c.ID,
		DocumentID:    c.DocumentID,
		Content:       c.Content,
		ChunkIndex:    c.ChunkIndex,
		StartPosition: c.StartPosition,
		EndPosition:   c.EndPosition,
		ContentHash:   c.ContentHash,
		ChunkType:     string(c.Type),
		Embedding:     c.Embedding,
		Metadata:      c.Metadata,
	}
}

func (d document) toChunk() entity.Chunk {
	return entity.Chunk{
		ID:            d.ID,
		DocumentID:    d.DocumentID,
		Content:       d.Content,
		ChunkIndex:    d.ChunkIndex,
		StartPosition: d.StartPosition,
		EndPosition:   d.EndPosition,
		ContentHash:   d.ContentHash,
		Type:          entity.ChunkType(d.ChunkType),
		Metadata:      d.Metadata,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Score  float64  `json:"_score"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

type deleteByQueryResponse struct {
	Deleted  int64             `json:"deleted"`
	Failures []json.RawMessage `json:"failures"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// EnsureIndex creates the index with the chunk mapping. An existing index is left untouched.
func (i *Index) EnsureIndex(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ready {
		return nil
	}

	err := i.connector.DoRequest(ctx, http.MethodPut, "/"+i.cfg.IndexName, i.mapping(), nil)
	if err != nil && !isAlreadyExists(err) {
		return classify("create index", err)
	}

	i.ready = true
	return nil
}

func (i *Index) mapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"dynamic_templates": []any{
				map[string]any{
					"metadata_strings": map[string]any{
						"path_match":         "metadata.*",
						"match_mapping_type": "string",
						"mapping":            map[string]any{"type": "keyword"},
					},
				},
			},
			"properties": map[string]any{
				"id":             map[string]any{"type": "keyword"},
				"document_id":    map[string]any{"type": "keyword"},
				"content":        map[string]any{"type": "text"},
				"chunk_index":    map[string]any{"type": "integer"},
				"start_position": map[string]any{"type": "integer"},
				"end_position":   map[string]any{"type": "integer"},
				"content_hash":   map[string]any{"type": "keyword"},
				"chunk_type":     map[string]any{"type": "keyword"},
				"embedding": map[string]any{
					"type":       "dense_vector",
					"dims":       i.cfg.Dimensions,
					"index":      true,
					"similarity": "cosine",
				},
				"metadata": map[string]any{"type": "object"},
			},
		},
	}
}

func (i *Index) Upsert(ctx context.Context, chunk entity.Chunk) error {
	if err := i.EnsureIndex(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("/%s/_doc/%s?refresh=wait_for", i.cfg.IndexName, url.PathEscape(chunk.ID))
	if err := i.connector.DoRequest(ctx, http.MethodPut, endpoint, toDocument(chunk), nil); err != nil {
		return classify("upsert chunk", err)
	}
	return nil
}

func (i *Index) UpsertBatch(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := i.EnsureIndex(ctx); err != nil {
		return err
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, c := range chunks {
		action := map[string]any{"index": map[string]any{"_index": i.cfg.IndexName, "_id": c.ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(toDocument(c)); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	var resp bulkResponse
	err := i.connector.DoRawRequest(ctx, http.MethodPost, "/_bulk?refresh=wait_for", "application/x-ndjson", body.Bytes(), &resp)
	if err != nil {
		return classify("bulk upsert", err)
	}

	if resp.Errors {
		for _, item := range resp.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("bulk upsert: chunk %s: %s: %s", result.ID, result.Error.Type, result.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk upsert: elasticsearch reported item errors")
	}

	return nil
}

func (i *Index) Search(ctx context.Context, _ string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	query := map[string]any{
		"size": topK,
		"query": map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{
					"bool": map[string]any{"filter": i.filterClauses(filters)},
				},
				"script": i.script(cosineScript, queryVector),
			},
		},
		"_source": map[string]any{"excludes": []string{"embedding"}},
	}

	return i.search(ctx, query)
}

func (i *Index) HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	should := []any{
		map[string]any{
			"script_score": map[string]any{
				"query":     map[string]any{"exists": map[string]any{"field": "embedding"}},
				"script":    i.script(similarityScript, queryVector),
				"min_score": max(i.cfg.SimilarityBaseline, 0) + baselineEpsilon,
			},
		},
	}
	if lexical := lexicalClause(vectorstore.QueryTerms(queryText)); lexical != nil {
		should = append([]any{lexical}, should...)
	}

	query := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"filter":               i.filterClauses(filters),
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"_source": map[string]any{"excludes": []string{"embedding"}},
	}

	return i.search(ctx, query)
}

// lexicalClause scores the fraction of query terms found in content: every matching
// term contributes a constant 1/len(terms), keeping BM25 statistics out of the sum.
func lexicalClause(terms []string) map[string]any {
	if len(terms) == 0 {
		return nil
	}

	weight := 1 / float64(len(terms))
	perTerm := make([]any, 0, len(terms))
	for _, term := range terms {
		perTerm = append(perTerm, map[string]any{
			"constant_score": map[string]any{
				"filter": map[string]any{"match": map[string]any{"content": term}},
				"boost":  weight,
			},
		})
	}
	return map[string]any{"bool": map[string]any{"should": perTerm}}
}

func (i *Index) search(ctx context.Context, query map[string]any) ([]entity.ScoredChunk, error) {
	var resp searchResponse
	err := i.connector.DoRequest(ctx, http.MethodPost, fmt.Sprintf("/%s/_search", i.cfg.IndexName), query, &resp)
	if err != nil {
		// nothing has been indexed yet
		if pkghttp.IsNotFound(err) {
			return []entity.ScoredChunk{}, nil
		}
		return nil, classify("search", err)
	}

	results := make([]entity.ScoredChunk, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		chunk := hit.Source.toChunk()
		if chunk.ID == "" {
			chunk.ID = hit.ID
		}
		results = append(results, entity.ScoredChunk{Chunk: chunk, Score: hit.Score})
	}
	return results, nil
}

func (i *Index) script(source string, queryVector []float32) map[string]any {
	return map[string]any{
		"source": source,
		"params": map[string]any{"query_vector": queryVector},
	}
}

func (i *Index) filterClauses(filters vectorstore.Filters) []any {
	clauses := []any{map[string]any{"exists": map[string]any{"field": "embedding"}}}
	for key, value := range filters {
		field := "metadata." + key
		if key == entity.MetaDocumentID {
			field = "document_id"
		}
		clauses = append(clauses, map[string]any{"term": map[string]any{field: value}})
	}
	return clauses
}

func (i *Index) Delete(ctx context.Context, chunkID string) error {
	endpoint := fmt.Sprintf("/%s/_doc/%s?refresh=wait_for", i.cfg.IndexName, url.PathEscape(chunkID))
	err := i.connector.DoRequest(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil && !pkghttp.IsNotFound(err) {
		return classify("delete chunk", err)
	}
	return nil
}

func (i *Index) DeleteByDocumentID(ctx context.Context, documentID string) error {
	query := map[string]any{
		"query": map[string]any{"term": map[string]any{"document_id": documentID}},
	}

	var resp deleteByQueryResponse
	endpoint := fmt.Sprintf("/%s/_delete_by_query?refresh=true&conflicts=proceed", i.cfg.IndexName)
	err := i.connector.DoRequest(ctx, http.MethodPost, endpoint, query, &resp)
	if err != nil {
		if pkghttp.IsNotFound(err) {
			return nil
		}
		return classify("delete by document", err)
	}

	if len(resp.Failures) > 0 {
		return fmt.Errorf("delete by document %s: %d failures", documentID, len(resp.Failures))
	}
	return nil
}

func (i *Index) Exists(ctx context.Context, chunkID string) (bool, error) {
	endpoint := fmt.Sprintf("/%s/_doc/%s", i.cfg.IndexName, url.PathEscape(chunkID))
	err := i.connector.DoRawRequest(ctx, http.MethodHead, endpoint, "", nil, nil)
	if err != nil {
		if pkghttp.IsNotFound(err) {
			return false, nil
		}
		return false, classify("exists", err)
	}
	return true, nil
}

func (i *Index) Count(ctx context.Context) (int64, error) {
	var resp countResponse
	err := i.connector.DoRequest(ctx, http.MethodGet, fmt.Sprintf("/%s/_count", i.cfg.IndexName), nil, &resp)
	if err != nil {
		if pkghttp.IsNotFound(err) {
			return 0, nil
		}
		return 0, classify("count", err)
	}
	return resp.Count, nil
}

// classify marks transport failures and gateway errors as index unavailability
func classify(op string, err error) error {
	if pkghttp.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, entity.ErrIndexUnavailable, err)
	}
	switch pkghttp.StatusCode(err) {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w: %w", op, entity.ErrIndexUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isAlreadyExists(err error) bool {
	var httpErr *pkghttp.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode == http.StatusBadRequest && strings.Contains(httpErr.Message, "resource_already_exists_exception")
}
