package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Pipeline errors
	ErrChunking         = errors.New("chunking failed")
	ErrEmbeddingFailure = errors.New("embedding failed")
	ErrIndexUnavailable = errors.New("retrieval index unavailable")
	ErrIngestionFailure = errors.New("ingestion failed")
	ErrQueryFailure     = errors.New("query failed")

	// Document errors
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// StageError reports which pipeline stage failed. Kind is one of the pipeline sentinels above.
type StageError struct {
	Kind  error
	Stage string
	Err   error
}

func NewStageError(kind error, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Cause returns the underlying error message for user-facing failure reports
func (e *StageError) Cause() string {
	if e.Err == nil {
		return e.Stage
	}
	return e.Err.Error()
}
