package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"book-query/config"
	"book-query/embedding"
	"book-query/models"
	"book-query/providers"
)

// Fehler, die der Import-Aufrufer synchron zu sehen bekommt. Alles nach dem
// Start der Pipeline ist nur noch über den Progress-Kanal beobachtbar.
var (
	ErrInvalidSource        = errors.New("invalid source")
	ErrDownloadNotPermitted = errors.New("download not permitted")
	ErrImportInFlight       = errors.New("import already in flight")
	ErrAlreadyImported      = errors.New("document already imported")
)

var (
	ingestFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_failures_total",
		Help: "Total number of ingestion pipelines that ended in FAILED.",
	})
	documentsCleaned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "documents_cleaned_total",
		Help: "Total number of abandoned documents whose artifacts were reclaimed.",
	})
)

func init() {
	prometheus.MustRegister(ingestFailures, documentsCleaned)
}

// httpClient wird für Datei-Downloads in der Pipeline verwendet.
var httpClient = &http.Client{Timeout: 10 * time.Minute}

// BlobStore ist die vom IngestService benötigte Sicht auf den Blob-Speicher.
// storage.S3Store erfüllt das Interface.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Mirror(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	DeleteReplica(ctx context.Context, key string) error
}

// ImportRequest ist der Body des Import-Endpunkts.
type ImportRequest struct {
	CandidateID string     `json:"candidate_id" binding:"required"`
	Title       string     `json:"title"`
	Source      string     `json:"source" binding:"required"`
	Ref         models.Ref `json:"ref"`
}

// ImportResult ist die synchrone Antwort auf einen angenommenen Import.
type ImportResult struct {
	Status     string `json:"status"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	DocumentID string `json:"documentId"`
	URI        string `json:"uri"`
}

// IngestService orchestriert die asynchrone Pipeline
// Download → Dual-Store → Text-Extraktion → Embedding → Index sowie die
// Zustandsmaschine des Dokuments.
type IngestService struct {
	Config    *config.Config
	DB        *gorm.DB
	Blobs     BlobStore
	Embedder  embedding.Embedder
	Extractor Extractor
	Logger    *zap.Logger
	Providers map[string]providers.Provider

	// Registry laufender Pipelines pro Dokument-ID. Verhindert, dass zwei
	// Importe für dieselbe ID gleichzeitig in dieselben Keys schreiben.
	mu      sync.Mutex
	running map[string]struct{}
}

// NewIngestService erstellt eine neue Instanz des IngestService.
func NewIngestService(cfg *config.Config, db *gorm.DB, blobs BlobStore, embedder embedding.Embedder,
	extractor Extractor, logger *zap.Logger, provs map[string]providers.Provider) *IngestService {
	return &IngestService{
		Config:    cfg,
		DB:        db,
		Blobs:     blobs,
		Embedder:  embedder,
		Extractor: extractor,
		Logger:    logger,
		Providers: provs,
		running:   make(map[string]struct{}),
	}
}

// BlobKey gibt den Storage-Key für eine Dokument-ID zurück.
func BlobKey(documentID string) string {
	return documentID + ".pdf"
}

// FileURI gibt den Abrufpfad für die gespeicherte Datei zurück.
func FileURI(documentID string) string {
	return fmt.Sprintf("/documents/%s/file", documentID)
}

// InFlight meldet, ob für die Dokument-ID gerade eine Pipeline läuft.
func (s *IngestService) InFlight(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[documentID]
	return ok
}

func (s *IngestService) register(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[documentID]; ok {
		return false
	}
	s.running[documentID] = struct{}{}
	return true
}

func (s *IngestService) unregister(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, documentID)
}

// Import validiert die Quelle, legt das PENDING-Platzhalter-Dokument an und
// startet bei auflösbarem Download die Pipeline als losgelösten Task. Der
// Aufrufer wartet nie auf die Pipeline.
func (s *IngestService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	provider, ok := s.Providers[req.Source]
	if !ok {
		return nil, ErrInvalidSource
	}
	if s.InFlight(req.CandidateID) {
		return nil, ErrImportInFlight
	}

	log := s.Logger.With(zap.String("document_id", req.CandidateID), zap.String("source", req.Source))

	// Aus READY führt kein Übergang mehr heraus: ein fertiges Dokument wird
	// nie auf PENDING zurückgesetzt. Nur FAILED darf als frischer Lauf
	// überschrieben werden.
	var existing models.Document
	switch err := s.DB.First(&existing, "id = ?", req.CandidateID).Error; {
	case err == nil:
		if existing.Status == models.StatusReady {
			return nil, ErrAlreadyImported
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("read document: %w", err)
	}

	// Platzhalter vor jedem externen I/O, damit der Progress-Kanal das
	// Dokument auch bei sofort scheiterndem Fetch beobachten kann.
	doc := models.Document{
		ID:     req.CandidateID,
		Title:  req.Title,
		Source: req.Source,
		Status: models.StatusPending,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "source", "status", "updated_at"}),
	}).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("create placeholder document: %w", err)
	}

	download, err := provider.Fetch(ctx, req.Ref)
	if err != nil {
		log.Warn("Fetch beim Provider fehlgeschlagen, werte als nicht erlaubt", zap.Error(err))
		return nil, ErrDownloadNotPermitted
	}
	if download == nil || !download.Available || download.URL == "" {
		log.Info("Kein Download-Link auflösbar, Import abgelehnt.")
		return nil, ErrDownloadNotPermitted
	}

	if !s.register(req.CandidateID) {
		return nil, ErrImportInFlight
	}
	go s.run(context.Background(), req, download.URL)

	log.Info("Import angenommen, Pipeline gestartet", zap.String("url", download.URL))
	return &ImportResult{
		Status:     "QUEUED",
		ID:         req.CandidateID,
		Title:      req.Title,
		Source:     req.Source,
		DocumentID: req.CandidateID,
		URI:        FileURI(req.CandidateID),
	}, nil
}

// run ist die eigentliche Pipeline. Sie läuft immer bis in einen terminalen
// Zustand; ein Abbruch des Progress-Kanals beendet sie nicht.
func (s *IngestService) run(ctx context.Context, req ImportRequest, downloadURL string) {
	defer s.unregister(req.CandidateID)

	id := req.CandidateID
	log := s.Logger.With(zap.String("document_id", id))
	log.Info("Starte Ingestion", zap.String("url", downloadURL))

	metadata, _ := json.Marshal(map[string]interface{}{
		"source":       req.Source,
		"ref":          req.Ref,
		"download_url": downloadURL,
	})
	if err := s.setStatus(id, models.StatusDownloading, datatypes.JSON(metadata)); err != nil {
		s.fail(log, id, "Statuswechsel nach DOWNLOADING fehlgeschlagen", err)
		return
	}

	data, err := s.downloadResource(ctx, downloadURL)
	if err != nil {
		s.fail(log, id, "Download fehlgeschlagen", err)
		return
	}

	key := BlobKey(id)
	if err := s.Blobs.Put(ctx, key, data); err != nil {
		s.fail(log, id, "Primär-Upload fehlgeschlagen", err)
		return
	}
	if err := s.Blobs.Mirror(ctx, key, data); err != nil {
		// Das Replikat darf fehlen; die Primärkopie ist autoritativ.
		log.Warn("Replikat-Upload fehlgeschlagen", zap.Error(err))
	}

	// Extraktion arbeitet auf der gespeicherten Kopie, nicht auf dem Download.
	stored, _, err := s.Blobs.Get(ctx, key)
	if err != nil {
		s.fail(log, id, "Gespeicherte Datei nicht lesbar", err)
		return
	}
	buf, err := io.ReadAll(stored)
	stored.Close()
	if err != nil {
		s.fail(log, id, "Gespeicherte Datei nicht lesbar", err)
		return
	}

	chunks, err := s.Extractor.Extract(ctx, bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		s.fail(log, id, "Text-Extraktion fehlgeschlagen", err)
		return
	}
	if len(chunks) == 0 {
		s.fail(log, id, "no text extracted", errors.New("document yielded zero text chunks"))
		return
	}

	rows := make([]models.Chunk, 0, len(chunks))
	for i, text := range chunks {
		vector, err := s.Embedder.Embed(ctx, text)
		if err != nil {
			s.fail(log, id, "Embedding fehlgeschlagen", err)
			return
		}
		embedded, err := json.Marshal(vector)
		if err != nil {
			s.fail(log, id, "Embedding nicht serialisierbar", err)
			return
		}
		rows = append(rows, models.Chunk{
			DocumentID: id,
			ChunkID:    i,
			Text:       text,
			Embedding:  datatypes.JSON(embedded),
		})
	}

	if err := s.DB.Create(&rows).Error; err != nil {
		s.fail(log, id, "Chunk-Persistierung fehlgeschlagen", err)
		return
	}
	if err := s.setStatus(id, models.StatusReady, nil); err != nil {
		s.fail(log, id, "Statuswechsel nach READY fehlgeschlagen", err)
		return
	}

	log.Info("Ingestion abgeschlossen", zap.Int("chunks", len(rows)))
}

// downloadResource streamt die Remote-Ressource in eine temporäre Datei und
// gibt deren Inhalt zurück. Die Datei wird in jedem Fall wieder entfernt.
func (s *IngestService) downloadResource(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "book-query-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Name())
}

func (s *IngestService) setStatus(id, status string, metadata datatypes.JSON) error {
	updates := map[string]interface{}{"status": status}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	return s.DB.Model(&models.Document{}).Where("id = ?", id).Updates(updates).Error
}

// fail setzt das Dokument terminal auf FAILED. Bereits geschriebene Chunks
// bleiben stehen; ein erneuter Import läuft die ganze Pipeline neu.
func (s *IngestService) fail(log *zap.Logger, id, reason string, err error) {
	log.Error("Ingestion fehlgeschlagen", zap.String("reason", reason), zap.Error(err))
	ingestFailures.Inc()
	if uerr := s.setStatus(id, models.StatusFailed, nil); uerr != nil {
		log.Error("Konnte FAILED-Status nicht schreiben", zap.Error(uerr))
	}
}

// Cleanup entfernt alle Artefakte eines aufgegebenen Imports: Dokument,
// Chunks und beide Blobs. Jede Löschung ist einzeln abgesichert; das Fehlen
// eines Ziels ist kein Fehler.
func (s *IngestService) Cleanup(ctx context.Context, documentID string) {
	log := s.Logger.With(zap.String("document_id", documentID))
	key := BlobKey(documentID)

	if err := s.DB.Delete(&models.Document{}, "id = ?", documentID).Error; err != nil {
		log.Warn("Dokument-Löschung fehlgeschlagen", zap.Error(err))
	}
	if err := s.DB.Where("document_id = ?", documentID).Delete(&models.Chunk{}).Error; err != nil {
		log.Warn("Chunk-Löschung fehlgeschlagen", zap.Error(err))
	}
	if err := s.Blobs.Delete(ctx, key); err != nil {
		log.Warn("Primär-Blob-Löschung fehlgeschlagen", zap.Error(err))
	}
	if err := s.Blobs.DeleteReplica(ctx, key); err != nil {
		log.Warn("Replikat-Blob-Löschung fehlgeschlagen", zap.Error(err))
	}

	documentsCleaned.Inc()
	log.Info("Artefakte des aufgegebenen Imports entfernt.")
}

// SweepStale räumt nicht-terminale Dokumente ab, die länger als das
// konfigurierte Fenster unberührt sind und keine laufende Pipeline mehr
// haben. Fängt Ingests ein, deren Beobachter nie verbunden war.
func (s *IngestService) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.Config.CleanupStaleAfter)

	var stale []models.Document
	err := s.DB.
		Where("status IN ?", []string{models.StatusPending, models.StatusDownloading}).
		Where("updated_at < ?", cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, doc := range stale {
		if s.InFlight(doc.ID) {
			continue
		}
		s.Cleanup(ctx, doc.ID)
		cleaned++
	}
	return cleaned, nil
}
