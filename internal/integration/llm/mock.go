package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector stands in for Ollama when mocks are enabled. Embeddings are hashed
// bags of words, so texts sharing terms land close together.
type MockConnector struct {
	dimensions int
	logger     *zap.Logger
}

func NewMockConnector(dimensions int, logger *zap.Logger) *MockConnector {
	if dimensions < 2 {
		dimensions = 2
	}
	return &MockConnector{
		dimensions: dimensions,
		logger:     logger,
	}
}

func (m *MockConnector) Name() string {
	return "mock"
}

func (m *MockConnector) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding texts", zap.Int("count", len(texts)))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embed(text)
	}
	return out, nil
}

func (m *MockConnector) embed(text string) []float32 {
	vec := make([]float32, m.dimensions)
	// the last slot is a constant bias so no vector has zero norm
	vec[m.dimensions-1] = 0.1

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum32()
		slot := int(sum % uint32(m.dimensions-1))
		if sum&(1<<31) != 0 {
			vec[slot] -= 1
		} else {
			vec[slot] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (m *MockConnector) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Chat(ctx, []entity.ChatTurn{{Role: entity.RoleUser, Content: prompt}})
}

// Chat answers intent and validation prompts with their positive verdict and echoes anything else
func (m *MockConnector) Chat(ctx context.Context, turns []entity.ChatTurn) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating response", zap.Int("turns", len(turns)))

	if len(turns) == 0 {
		return "", nil
	}
	last := turns[len(turns)-1].Content

	switch {
	case strings.Contains(last, "[SEARCH_NEEDED]"):
		return "[SEARCH_NEEDED]", nil
	case strings.Contains(last, "VALID or INVALID"):
		return "VALID", nil
	}

	question := last
	if idx := strings.LastIndex(last, "Question:"); idx >= 0 {
		question = strings.TrimSpace(last[idx+len("Question:"):])
		if end := strings.Index(question, "\n"); end >= 0 {
			question = question[:end]
		}
	}

	return fmt.Sprintf("[MOCK] Response to: %s", truncate(question, 200)), nil
}

func (m *MockConnector) Ping(context.Context) error {
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
