package services

import (
	"context"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor liefert die nicht-leeren Textseiten eines Dokuments in
// Seitenreihenfolge.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]string, error)
}

// PDFExtractor liest seitenweise Klartext aus einem PDF.
type PDFExtractor struct{}

// NewPDFExtractor erstellt einen neuen PDF-Extraktor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract öffnet das PDF und sammelt pro Seite den getrimmten Text. Seiten
// ohne extrahierbaren Text werden übersprungen; ob am Ende überhaupt Text
// übrig bleibt, bewertet der Aufrufer.
func (e *PDFExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	var chunks []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Einzelne kaputte Seiten sind kein Abbruchgrund.
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks, nil
}
