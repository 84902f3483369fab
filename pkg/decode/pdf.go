package decode

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// unbrokenThreshold is the length above which single-line PDF text is split
// into one sentence per line.
const unbrokenThreshold = 250

func readPDF(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Document{}, fmt.Errorf("stat pdf: %w", err)
	}

	pages := 0
	if n, err := api.PageCount(f, nil); err == nil {
		pages = n
	}

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return Document{}, fmt.Errorf("parse pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return Document{}, fmt.Errorf("extract page %d: %w", i, err)
		}
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}

	text := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(sb.String())
	if body := strings.TrimRight(text, "\n"); !strings.Contains(body, "\n") && len(body) > unbrokenThreshold {
		text = strings.ReplaceAll(text, ". ", ".\n")
	}

	if pages == 0 {
		pages = r.NumPage()
	}

	return Document{Text: text, Format: FormatPDF, Pages: pages}, nil
}
