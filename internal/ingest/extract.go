package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText pulls plain text out of a source document. PDFs go
// through ledongthuc/pdf; everything else is treated as UTF-8 text.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("pdf %s produced no text", path)
	}
	return buf.String(), nil
}
