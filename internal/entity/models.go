package entity

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

type DocumentType string

const (
	DocumentTypePDF      DocumentType = "PDF"
	DocumentTypeMarkdown DocumentType = "MARKDOWN"
	DocumentTypeHTML     DocumentType = "HTML"
	DocumentTypeDOCX     DocumentType = "DOCX"
	DocumentTypeTXT      DocumentType = "TXT"
	DocumentTypeJSON     DocumentType = "JSON"
	DocumentTypeXML      DocumentType = "XML"
)

// DocumentTypeFromFilename resolves the document type from the file extension
func DocumentTypeFromFilename(filename string) (DocumentType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return DocumentTypePDF, nil
	case ".md", ".markdown":
		return DocumentTypeMarkdown, nil
	case ".html", ".htm":
		return DocumentTypeHTML, nil
	case ".docx":
		return DocumentTypeDOCX, nil
	case ".txt", ".text":
		return DocumentTypeTXT, nil
	case ".json":
		return DocumentTypeJSON, nil
	case ".xml":
		return DocumentTypeXML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

type DocumentStatus string

// Document status transitions: PENDING -> PROCESSING -> INDEXED | FAILED, any -> DELETED
const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusIndexed    DocumentStatus = "INDEXED"
	DocumentStatusFailed     DocumentStatus = "FAILED"
	DocumentStatusDeleted    DocumentStatus = "DELETED"
)

const DocumentVersion = "1.0"

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Content     string         `json:"-"`
	ContentHash string         `json:"content_hash"`
	Source      string         `json:"source"`
	Type        DocumentType   `json:"type"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Version     string         `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocument creates a document in PROCESSING status
func NewDocument(id, filename, source, content, contentHash string, docType DocumentType, size int64) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:          id,
		Filename:    filename,
		Content:     content,
		ContentHash: contentHash,
		Source:      source,
		Type:        docType,
		Size:        size,
		Status:      DocumentStatusProcessing,
		Metadata:    map[string]any{},
		Version:     DocumentVersion,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetStatus moves the document to the given status and bumps UpdatedAt
func (d *Document) SetStatus(status DocumentStatus) {
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
}

type ChunkType string

const (
	ChunkTypeText             ChunkType = "TEXT"
	ChunkTypeCode             ChunkType = "CODE"
	ChunkTypeTable            ChunkType = "TABLE"
	ChunkTypeImageDescription ChunkType = "IMAGE_DESCRIPTION"
	ChunkTypeMetadata         ChunkType = "METADATA"
)

// Chunk metadata keys denormalized from the owning document
const (
	MetaSource       = "source"
	MetaFilename     = "filename"
	MetaDocumentType = "document_type"
	MetaChunkIndex   = "chunk_index"
	MetaDocumentID   = "document_id"
)

type Chunk struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"document_id"`
	Content       string         `json:"content"`
	ChunkIndex    int            `json:"chunk_index"`
	StartPosition int            `json:"start_position"`
	EndPosition   int            `json:"end_position"`
	Embedding     []float32      `json:"embedding,omitempty"`
	ContentHash   string         `json:"content_hash"`
	Type          ChunkType      `json:"chunk_type"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ChunkID derives the chunk identity from its document and ordinal
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// NewChunk builds a TEXT chunk with document attributes copied into its metadata.
// start is a character offset; the end offset adds the character length of content.
func NewChunk(doc *Document, index int, content string, start int, contentHash string) Chunk {
	meta := make(map[string]any, len(doc.Metadata)+4)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[MetaSource] = doc.Source
	meta[MetaFilename] = doc.Filename
	meta[MetaDocumentType] = string(doc.Type)
	meta[MetaChunkIndex] = index

	return Chunk{
		ID:            ChunkID(doc.ID, index),
		DocumentID:    doc.ID,
		Content:       content,
		ChunkIndex:    index,
		StartPosition: start,
		EndPosition:   start + utf8.RuneCountInString(content),
		ContentHash:   contentHash,
		Type:          ChunkTypeText,
		Metadata:      meta,
	}
}

// ScoredChunk is a single retrieval hit
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
