// Package decode converts uploaded files into plain text.
// Formats are dispatched by file extension: .pdf, .txt, and .csv are
// recognized; anything else fails with ErrUnsupported.
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported indicates a file extension with no registered reader.
var ErrUnsupported = errors.New("unsupported file type")

// Format identifies the decoder that produced a Document.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatTXT Format = "txt"
	FormatCSV Format = "csv"
)

// Document is the decoded content of one file.
// Pages is zero for formats without pagination or when the count is unavailable.
type Document struct {
	Text   string
	Format Format
	Pages  int
}

// ReaderFunc decodes the file at path.
type ReaderFunc func(path string) (Document, error)

var readers = map[string]ReaderFunc{
	".pdf": readPDF,
	".txt": readTXT,
	".csv": readCSV,
}

// Supported reports whether path has an extension with a registered reader.
func Supported(path string) bool {
	_, ok := readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Read decodes the file at path using the reader registered for its extension.
func Read(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	read, ok := readers[ext]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return read(path)
}
