// Package extract turns raw document bytes into plain text for chunking.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"
	"golang.org/x/net/html"
)

// Extractor resolves the document type from the filename and extracts its text
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(filename string, data []byte) (string, entity.DocumentType, error) {
	docType, err := entity.DocumentTypeFromFilename(filename)
	if err != nil {
		return "", "", err
	}

	text, err := Text(docType, data)
	if err != nil {
		return "", docType, err
	}
	return text, docType, nil
}

// Text extracts readable text according to the document type
func Text(docType entity.DocumentType, content []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch docType {
	case entity.DocumentTypeTXT, entity.DocumentTypeMarkdown, entity.DocumentTypeJSON:
		text = string(content)
	case entity.DocumentTypeHTML:
		text, err = fromHTML(content)
	case entity.DocumentTypeXML:
		text, err = fromXML(content)
	case entity.DocumentTypePDF:
		text, err = fromPDF(content)
	case entity.DocumentTypeDOCX:
		text, err = fromDOCX(content)
	default:
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, docType)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", strings.ToLower(string(docType)), err)
	}

	return normalizeWhitespace(text), nil
}

// skipped elements never carry readable text
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"svg":      true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "section": true, "article": true,
}

func fromHTML(content []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(content))

	var sb strings.Builder
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return sb.String(), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipped[tag] {
				depth++
			}
			if blockElements[tag] {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipped[tag] && depth > 0 {
				depth--
			}
			if blockElements[tag] {
				sb.WriteString("\n")
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockElements[string(name)] {
				sb.WriteString("\n")
			}
		case html.TextToken:
			if depth == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func fromXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false

	var parts []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if data, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(data)); s != "" {
				parts = append(parts, s)
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}

func fromPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func fromDOCX(content []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, run := range p.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			cells := make([]string, 0, len(row.Cells()))
			for _, cell := range row.Cells() {
				var cellText strings.Builder
				for _, p := range cell.Paragraphs() {
					for _, run := range p.Runs() {
						cellText.WriteString(run.Text())
					}
				}
				cells = append(cells, cellText.String())
			}
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// normalizeWhitespace collapses runs of spaces and tabs, trims lines and keeps at most
// one blank line between paragraphs
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
