// Package extractor turns an uploaded PDF or plain-text file into text.
package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"fin-analyzer-go/pkg/apperr"
)

// Extractor is the document reading capability used by the pipeline and the agent tool.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (string, error)
}

// RemoteTextExtractor extracts text from a document stream, e.g. an Apache Tika server.
type RemoteTextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// FileExtractor reads files from local disk. PDFs are parsed in-process unless a
// remote extractor is configured.
type FileExtractor struct {
	remote RemoteTextExtractor
}

// New returns an extractor using the in-process PDF parser.
func New() *FileExtractor {
	return &FileExtractor{}
}

// NewWithRemote returns an extractor that sends PDFs to remote.
func NewWithRemote(remote RemoteTextExtractor) *FileExtractor {
	return &FileExtractor{remote: remote}
}

// IsPDF reports whether path is routed to the PDF reader.
func IsPDF(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

// Extract returns the trimmed text of the file at filePath. An empty string is a
// valid result. Open and parse failures are extraction errors carrying the cause.
func (e *FileExtractor) Extract(ctx context.Context, filePath string) (string, error) {
	var (
		text string
		err  error
	)
	if IsPDF(filePath) {
		if e.remote != nil {
			text, err = e.extractRemote(ctx, filePath)
		} else {
			text, err = extractPDF(filePath)
		}
	} else {
		text, err = extractText(filePath)
	}
	if err != nil {
		return "", apperr.Extraction(err, "document extraction failed for %s", filepath.Base(filePath))
	}
	return text, nil
}

func (e *FileExtractor) extractRemote(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := e.remote.ExtractText(ctx, f, filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// extractPDF concatenates the plain text of every page, each followed by a newline.
// The pdf package panics on some malformed inputs, so panics become errors.
func extractPDF(filePath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if pageText == "" {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func extractText(filePath string) (string, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}

	content := strings.TrimPrefix(string(raw), "\ufeff")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
