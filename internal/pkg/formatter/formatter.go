// Package formatter renders plain-text transcripts as downloadable documents.
package formatter

import (
	"fmt"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

const DefaultTitle = "Conversation transcript"

type Formatter interface {
	Format(title, plainText string) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", entity.ErrInvalidFormat, format)
	}
}

func titleOrDefault(title string) string {
	if title == "" {
		return DefaultTitle
	}
	return title
}
