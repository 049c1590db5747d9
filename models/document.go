package models

import (
	"time"

	"gorm.io/datatypes"
)

// Status-Werte der Dokument-Zustandsmaschine. READY und FAILED sind terminal;
// ein fehlgeschlagener Import wird als neuer Import wiederholt, nie fortgesetzt.
const (
	StatusPending     = "PENDING"
	StatusDownloading = "DOWNLOADING"
	StatusReady       = "READY"
	StatusFailed      = "FAILED"
)

// IsTerminal meldet, ob aus dem Status keine weiteren Übergänge mehr folgen.
func IsTerminal(status string) bool {
	return status == StatusReady || status == StatusFailed
}

// Document ist die dauerhafte Aufzeichnung eines Import-Versuchs. Die ID ist
// die vom Aufrufer gewählte candidate_id.
type Document struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title  string `json:"title"`
	Source string `json:"source" gorm:"index"`
	Status string `json:"status" gorm:"index;default:'PENDING'"`

	// Aufgelöstes Provider-Resultat (Download-URL, Ref etc.)
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (Document) TableName() string {
	return "documents"
}
