package entity

// Source is a raw document handed to ingestion. Either Content or Path must be set.
type Source struct {
	Filename string
	Path     string
	Content  []byte
	Metadata map[string]any
}

type IngestResponse struct {
	Document *Document `json:"document,omitempty"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

type DeleteDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type ResultFormat string

const (
	FormatJSON     ResultFormat = "json"
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}
