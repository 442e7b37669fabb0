// Package extract turns source documents into plain text for ingestion.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupported is returned for extensions with no registered extractor.
var ErrUnsupported = errors.New("unsupported document format")

// Func extracts text from the raw bytes of one document.
type Func func(content []byte) (string, error)

// Extractor dispatches on file extension.
type Extractor struct {
	funcs map[string]Func
}

// NewExtractor returns an Extractor with the built-in formats registered:
// plain text (.txt, .md, .rst), .pdf, .docx, .xlsx, .odt and .rtf.
func NewExtractor() *Extractor {
	e := &Extractor{funcs: make(map[string]Func)}
	for _, ext := range []string{".txt", ".md", ".rst", ".csv"} {
		e.Register(ext, extractPlain)
	}
	e.Register(".pdf", extractPDF)
	e.Register(".docx", extractDOCX)
	e.Register(".xlsx", extractExcel)
	e.Register(".odt", extractWithCat)
	e.Register(".rtf", extractWithCat)
	return e
}

// Register sets the extractor for ext, replacing any existing one.
func (e *Extractor) Register(ext string, fn Func) {
	e.funcs[normalizeExt(ext)] = fn
}

// Supports reports whether ext has a registered extractor.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.funcs[normalizeExt(ext)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (e *Extractor) Extensions() []string {
	out := make([]string, 0, len(e.funcs))
	for ext := range e.funcs {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension,
// which should include the leading dot (e.g. ".pdf"). A file with no
// extension is read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = normalizeExt(ext)
	if ext == "" {
		return extractPlain(content)
	}
	fn, ok := e.funcs[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	return fn(content)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
