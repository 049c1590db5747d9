package services

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"book-query/models"
)

// ProgressService bedient die langlebige Fortschritts-Subscription pro
// Dokument. Bewusst Polling statt Push: der Document Store ist die einzige
// Wahrheitsquelle und bei dieser Kadenz billig erneut zu lesen.
type ProgressService struct {
	DB     *gorm.DB
	Ingest *IngestService
	Logger *zap.Logger

	// Poll-Abstand zwischen zwei Status-Lesungen.
	Interval time.Duration
}

// NewProgressService erstellt eine neue Instanz des ProgressService.
func NewProgressService(db *gorm.DB, ingest *IngestService, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		DB:       db,
		Ingest:   ingest,
		Logger:   logger,
		Interval: 1500 * time.Millisecond,
	}
}

// Forward beobachtet die Zustandsmaschine des Dokuments und pusht jeden
// gelesenen Status an den Beobachter, bis ein terminaler Zustand erreicht
// ist. Die Verbindung wird in jedem Ausgang geschlossen. Bricht der
// Beobachter vor einem terminalen Zustand ab, gilt der Import als
// aufgegeben und seine Artefakte werden entfernt.
func (p *ProgressService) Forward(ctx context.Context, conn *websocket.Conn, documentID string) {
	defer conn.Close()
	log := p.Logger.With(zap.String("document_id", documentID))
	log.Info("Progress-Kanal geöffnet.")
	defer log.Info("Progress-Kanal geschlossen.")

	// Unbekannte IDs sofort terminal beantworten, ohne Poll-Wartezeit.
	var doc models.Document
	if err := p.DB.First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = conn.WriteJSON(map[string]string{"status": "NOT_FOUND"})
			return
		}
		log.Error("Dokument-Lesung fehlgeschlagen", zap.Error(err))
		_ = conn.WriteJSON(map[string]string{"status": "ERROR"})
		return
	}

	// Lese-Pumpe nur zur Abbruch-Erkennung; Nachrichten des Clients werden
	// verworfen.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		var doc models.Document
		if err := p.DB.First(&doc, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = conn.WriteJSON(map[string]string{"status": "NOT_FOUND"})
				return
			}
			log.Error("Dokument-Lesung fehlgeschlagen", zap.Error(err))
			_ = conn.WriteJSON(map[string]string{"status": "ERROR"})
			return
		}

		switch doc.Status {
		case models.StatusReady:
			_ = conn.WriteJSON(map[string]string{
				"status":     models.StatusReady,
				"id":         doc.ID,
				"title":      doc.Title,
				"source":     doc.Source,
				"documentId": doc.ID,
				"uri":        FileURI(doc.ID),
			})
			return
		case models.StatusFailed:
			_ = conn.WriteJSON(map[string]string{"status": models.StatusFailed})
			return
		default:
			if err := conn.WriteJSON(map[string]string{"status": doc.Status}); err != nil {
				p.abandoned(documentID)
				return
			}
		}

		select {
		case <-ctx.Done():
			p.abandoned(documentID)
			return
		case <-time.After(p.Interval):
		}
	}
}

// abandoned räumt die Artefakte eines Imports ab, dessen Beobachter vor dem
// terminalen Zustand verschwunden ist.
func (p *ProgressService) abandoned(documentID string) {
	p.Logger.Info("Beobachter hat den Import aufgegeben, räume auf",
		zap.String("document_id", documentID))
	p.Ingest.Cleanup(context.Background(), documentID)
}
