package validator

import (
	"fmt"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

const maxTopK = 50

// ValidateQuery checks a query request and normalizes its strategy
func (v *Validator) ValidateQuery(req *entity.QueryRequest, defaultStrategy entity.SearchStrategy) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query", entity.ErrMissingField)
	}

	if req.TopK < 0 || req.TopK > maxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d, got %d", entity.ErrInvalidParameter, maxTopK, req.TopK)
	}

	if req.MinScore < 0 {
		return fmt.Errorf("%w: min_score must not be negative", entity.ErrInvalidParameter)
	}

	strategy, err := entity.ParseSearchStrategy(string(req.Strategy), defaultStrategy)
	if err != nil {
		return fmt.Errorf("%w: strategy %q", err, req.Strategy)
	}
	req.Strategy = strategy

	return nil
}

func (v *Validator) ValidateChat(req *entity.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message", entity.ErrMissingField)
	}
	return nil
}

// ParseFormat reads an export format, defaulting to markdown
func ParseFormat(s string) (entity.ResultFormat, error) {
	if s == "" {
		return entity.FormatMarkdown, nil
	}
	format := entity.ResultFormat(strings.ToLower(s))
	if !format.IsValid() {
		return "", fmt.Errorf("%w: format must be one of: json, markdown, docx, pdf", entity.ErrInvalidFormat)
	}
	return format, nil
}
