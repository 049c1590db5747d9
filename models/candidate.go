package models

// Ref ist der provider-spezifische Locator eines Kandidaten. Der Inhalt ist
// für alle anderen Komponenten opak und wird unverändert an Fetch durchgereicht.
type Ref map[string]string

// Candidate repräsentiert ein auffindbares Buch bei genau einem Provider.
// Kandidaten sind flüchtig: sie leben nur in der Such-Antwort und werden
// nirgends persistiert.
type Candidate struct {
	CandidateID       string `json:"candidate_id"`
	Title             string `json:"title"`
	Author            string `json:"author"`
	Edition           string `json:"edition"`
	Year              string `json:"year"`
	Source            string `json:"source"`
	ISBN              string `json:"isbn"`
	DownloadAvailable bool   `json:"download_available"`
	DownloadURL       string `json:"download_url,omitempty"`
	Ref               Ref    `json:"ref"`

	// Nur von Google Books geliefert.
	WebReaderURL string `json:"web_reader_url,omitempty"`
	Viewability  string `json:"viewability,omitempty"`
}
