package googlebooks

// VolumesResponse ist die Top-Level-Struktur der Google Books API-Antwort.
type VolumesResponse struct {
	Items []Volume `json:"items"`
}

// Volume repräsentiert ein einzelnes Buch in der API-Antwort.
type Volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		PublishedDate       string   `json:"publishedDate"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
	} `json:"volumeInfo"`
	AccessInfo struct {
		Viewability   string `json:"viewability"`
		WebReaderLink string `json:"webReaderLink"`
	} `json:"accessInfo"`
}
