package gutenberg

import "strings"

// BooksResponse ist die Top-Level-Struktur der Gutendex-Such-Antwort.
type BooksResponse struct {
	Results []Book `json:"results"`
}

// Book repräsentiert ein einzelnes Buch in der Gutendex-Antwort.
type Book struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	CopyrightYear *int              `json:"copyright_year"`
	Formats       map[string]string `json:"formats"`
}

// PDFLink sucht im Format-Mapping den ersten PDF-Eintrag.
func (b *Book) PDFLink() string {
	for mime, link := range b.Formats {
		if strings.HasSuffix(mime, "pdf") {
			return link
		}
	}
	return ""
}
