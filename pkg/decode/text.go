package decode

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readTXT(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read txt: %w", err)
	}

	text, err := toUTF8(data)
	if err != nil {
		return Document{}, fmt.Errorf("decode txt: %w", err)
	}

	return Document{Text: text, Format: FormatTXT}, nil
}

func readCSV(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read csv: %w", err)
	}

	text, err := toUTF8(data)
	if err != nil {
		return Document{}, fmt.Errorf("decode csv: %w", err)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Document{}, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, strings.Join(record, ", "))
	}

	return Document{Text: strings.Join(rows, "\n"), Format: FormatCSV}, nil
}

// toUTF8 strips a UTF-8 byte order mark, falls back to Windows-1252 for
// invalid UTF-8, and returns NFC-normalized text.
func toUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		data = decoded
	}

	return norm.NFC.String(string(data)), nil
}
