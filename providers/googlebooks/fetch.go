package googlebooks

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

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher implementiert das Provider-Interface für Google Books.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Google Books Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Quell-Tag des Providers zurück.
func (f *Fetcher) Name() string {
	return "google"
}

// Search führt die Volltext-Suche auf Google Books aus.
func (f *Fetcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	log := f.Logger.With(zap.String("query", query))

	searchURL := fmt.Sprintf("%s/volumes?q=%s", f.Config.GoogleBooksBaseURL, url.QueryEscape(query))
	if f.Config.GoogleBooksKey != "" {
		searchURL += "&key=" + url.QueryEscape(f.Config.GoogleBooksKey)
	}

	var volumes VolumesResponse
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
			return fmt.Errorf("google books search failed: status %d", resp.StatusCode)
		}
		volumes = VolumesResponse{}
		return json.NewDecoder(resp.Body).Decode(&volumes)
	})
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, v := range volumes.Items {
		if v.ID == "" {
			continue // ohne auflösbaren Ref wird kein Kandidat emittiert
		}
		candidates = append(candidates, mapVolumeToCandidate(&v))
	}
	log.Debug("Google Books Suche abgeschlossen", zap.Int("count", len(candidates)))
	return candidates, nil
}

// Fetch ist für Google Books bewusst ein unbedingtes "nicht erlaubt":
// die API gestattet keinen programmatischen PDF-Download.
func (f *Fetcher) Fetch(ctx context.Context, ref models.Ref) (*providers.Download, error) {
	return nil, nil
}

// mapVolumeToCandidate konvertiert ein Volume-Objekt in unser Candidate-Modell.
func mapVolumeToCandidate(v *Volume) models.Candidate {
	year := v.VolumeInfo.PublishedDate
	if len(year) > 4 {
		year = year[:4]
	}
	isbn := ""
	if len(v.VolumeInfo.IndustryIdentifiers) > 0 {
		isbn = v.VolumeInfo.IndustryIdentifiers[0].Identifier
	}
	return models.Candidate{
		Title:             v.VolumeInfo.Title,
		Author:            strings.Join(v.VolumeInfo.Authors, ", "),
		Edition:           v.VolumeInfo.Subtitle,
		Year:              year,
		Source:            "google",
		ISBN:              isbn,
		DownloadAvailable: false,
		Ref:               models.Ref{"id": v.ID},
		WebReaderURL:      v.AccessInfo.WebReaderLink,
		Viewability:       v.AccessInfo.Viewability,
	}
}
