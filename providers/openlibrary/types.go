package openlibrary

// SearchResponse ist die Top-Level-Struktur der Open Library Such-Antwort.
type SearchResponse struct {
	Docs []Doc `json:"docs"`
}

// Doc repräsentiert einen einzelnen Treffer in der Such-Antwort.
type Doc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	EditionKey       []string `json:"edition_key"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	PublicScan       bool     `json:"public_scan_b"`
}

// Edition ist die Antwort des Editions-Endpunkts, der beim Fetch geprüft wird.
type Edition struct {
	PublicScan bool `json:"public_scan"`
}
