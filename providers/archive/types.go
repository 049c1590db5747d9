package archive

import "encoding/json"

// SearchResponse ist die Top-Level-Struktur der Advanced-Search-Antwort.
type SearchResponse struct {
	Response struct {
		Docs []Doc `json:"docs"`
	} `json:"response"`
}

// Doc repräsentiert ein einzelnes Archiv-Item in der Such-Antwort.
// Das Jahr kommt je nach Item als Zahl oder String, daher json.Number.
type Doc struct {
	Identifier string      `json:"identifier"`
	Title      string      `json:"title"`
	Creator    string      `json:"creator"`
	Year       json.Number `json:"year"`
	ISBN       []string    `json:"isbn"`
	Rights     string      `json:"rights"`
}

// Metadata ist die für den Fetch relevante Teilmenge des Metadata-Endpunkts.
type Metadata struct {
	Metadata struct {
		Rights string `json:"rights"`
	} `json:"metadata"`
}
