package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chunk ist eine extrahierte Textseite eines Dokuments samt Embedding-Vektor.
// Die ChunkIDs eines Dokuments bilden eine lückenlose 0..N-1-Sequenz in
// Seitenreihenfolge.
type Chunk struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID string `json:"document_id" gorm:"index;uniqueIndex:idx_chunks_document_seq;size:64;not null"`
	ChunkID    int    `json:"chunk_id" gorm:"uniqueIndex:idx_chunks_document_seq"`

	Text      string         `json:"text" gorm:"type:text"`
	Embedding datatypes.JSON `json:"embedding" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (Chunk) TableName() string {
	return "chunks"
}
