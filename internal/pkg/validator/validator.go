package validator

import (
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
	".txt":      true,
	".json":     true,
	".xml":      true,
}

const allowedExtensionsHint = "pdf, md, html, docx, txt, json, xml"

// Validator validates uploads and request bodies
type Validator struct {
	cfg config.FileUploadConfig
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks a single uploaded document
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: %s)", entity.ErrInvalidExtension, ext, allowedExtensionsHint)
	}

	if fh.Size == 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, fh.Filename)
	}

	if fh.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
	}

	return nil
}

// ValidatePath checks a server-side path submitted for ingestion: a supported extension,
// a regular non-empty file, and the same size limit as uploads.
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: %s)", entity.ErrInvalidExtension, ext, allowedExtensionsHint)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: file '%s' does not exist", entity.ErrInvalidFile, path)
		}
		return fmt.Errorf("%w: stat '%s': %v", entity.ErrInvalidFile, path, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: '%s' is not a regular file", entity.ErrInvalidFile, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, path)
	}

	if info.Size() > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, path, info.Size(), v.cfg.MaxFileSize)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
