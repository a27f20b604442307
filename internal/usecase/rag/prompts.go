package rag

import (
	"fmt"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

const UnknownSource = "Unknown source"

const contextPromptTemplate = `You are a helpful AI assistant. Answer the question based on the provided context.
If the context doesn't contain enough information, say so.

Context:
%s

Question: %s

Answer:`

const directPromptTemplate = `You are a helpful AI assistant. Answer the following question clearly and accurately.

Question: %s

Answer:`

// ContextPrompt grounds the question in retrieved context
func ContextPrompt(context, query string) string {
	return fmt.Sprintf(contextPromptTemplate, context, query)
}

// DirectPrompt is the no-context fallback
func DirectPrompt(query string) string {
	return fmt.Sprintf(directPromptTemplate, query)
}

// JoinContext concatenates chunk contents in rank order, separated by blank lines
func JoinContext(chunks []entity.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Sources returns distinct citation sources in rank order
func Sources(chunks []entity.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		source := UnknownSource
		if v, ok := c.Metadata[entity.MetaSource]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				source = s
			}
		}
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
	}
	return sources
}
