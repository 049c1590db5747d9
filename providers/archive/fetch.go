package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"book-query/config"
	"book-query/models"
	"book-query/providers"
)

const maxRows = 5

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher implementiert das Provider-Interface für das Internet Archive.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Internet Archive Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Quell-Tag des Providers zurück.
func (f *Fetcher) Name() string {
	return "ia"
}

// Search führt die Advanced Search des Internet Archive aus.
func (f *Fetcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	log := f.Logger.With(zap.String("query", query))

	searchURL := fmt.Sprintf("%s/advancedsearch.php?q=%s&output=json&rows=%d",
		f.Config.ArchiveBaseURL, url.QueryEscape(query), maxRows)

	var sr SearchResponse
	err := providers.WithRetry(ctx, log, f.Name(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("archive search failed: status %d", resp.StatusCode)
		}
		sr = SearchResponse{}
		return json.NewDecoder(resp.Body).Decode(&sr)
	})
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, d := range sr.Response.Docs {
		if d.Identifier == "" {
			continue
		}
		candidates = append(candidates, f.mapDocToCandidate(&d))
	}
	log.Debug("Internet Archive Suche abgeschlossen", zap.Int("count", len(candidates)))
	return candidates, nil
}

// Fetch prüft die Rechte des Items und gibt bei Public-Domain den PDF-Link zurück.
func (f *Fetcher) Fetch(ctx context.Context, ref models.Ref) (*providers.Download, error) {
	identifier := ref["id"]
	if identifier == "" {
		return nil, nil
	}

	metaURL := fmt.Sprintf("%s/metadata/%s", f.Config.ArchiveBaseURL, url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, nil
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		f.Logger.Warn("Internet Archive Fetch fehlgeschlagen", zap.String("identifier", identifier), zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, nil
	}
	if isPublic(meta.Metadata.Rights) {
		return &providers.Download{
			Available: true,
			URL:       f.pdfURL(identifier),
		}, nil
	}
	return &providers.Download{Available: false}, nil
}

func isPublic(rights string) bool {
	return strings.Contains(strings.ToLower(rights), "public")
}

func (f *Fetcher) pdfURL(identifier string) string {
	return fmt.Sprintf("%s/download/%s/%s.pdf", f.Config.ArchiveBaseURL, identifier, identifier)
}

// mapDocToCandidate konvertiert ein Archiv-Item in unser Candidate-Modell.
func (f *Fetcher) mapDocToCandidate(d *Doc) models.Candidate {
	isbn := ""
	if len(d.ISBN) > 0 {
		isbn = d.ISBN[0]
	}
	c := models.Candidate{
		Title:             d.Title,
		Author:            d.Creator,
		Edition:           d.Identifier,
		Year:              d.Year.String(),
		Source:            "ia",
		ISBN:              isbn,
		DownloadAvailable: isPublic(d.Rights),
		Ref:               models.Ref{"id": d.Identifier},
	}
	if c.DownloadAvailable {
		c.DownloadURL = f.pdfURL(d.Identifier)
	}
	return c
}
