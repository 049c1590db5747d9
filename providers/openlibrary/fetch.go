package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"book-query/config"
	"book-query/models"
	"book-query/providers"
)

// Maximal so viele Treffer übernehmen wir pro Suche.
const maxResults = 5

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher implementiert das Provider-Interface für Open Library.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Open Library Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Quell-Tag des Providers zurück.
func (f *Fetcher) Name() string {
	return "openlibrary"
}

// Search führt die Suche auf Open Library aus.
func (f *Fetcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	log := f.Logger.With(zap.String("query", query))

	searchURL := fmt.Sprintf("%s/search.json?q=%s", f.Config.OpenLibraryBaseURL, url.QueryEscape(query))

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
			return fmt.Errorf("open library search failed: status %d", resp.StatusCode)
		}
		sr = SearchResponse{}
		return json.NewDecoder(resp.Body).Decode(&sr)
	})
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, d := range sr.Docs {
		if len(d.EditionKey) == 0 || d.EditionKey[0] == "" {
			continue // ohne Edition-Key kein auflösbarer Ref
		}
		candidates = append(candidates, f.mapDocToCandidate(&d))
		if len(candidates) == maxResults {
			break
		}
	}
	log.Debug("Open Library Suche abgeschlossen", zap.Int("count", len(candidates)))
	return candidates, nil
}

// Fetch prüft die gewählte Edition und gibt bei freiem Scan den PDF-Link zurück.
func (f *Fetcher) Fetch(ctx context.Context, ref models.Ref) (*providers.Download, error) {
	edition := ref["edition"]
	if edition == "" {
		return nil, nil
	}

	editionURL := fmt.Sprintf("%s/books/%s.json", f.Config.OpenLibraryBaseURL, url.PathEscape(edition))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, editionURL, nil)
	if err != nil {
		return nil, nil
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		f.Logger.Warn("Open Library Fetch fehlgeschlagen", zap.String("edition", edition), zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var ed Edition
	if err := json.NewDecoder(resp.Body).Decode(&ed); err != nil {
		return nil, nil
	}
	if ed.PublicScan {
		return &providers.Download{
			Available: true,
			URL:       f.pdfURL(edition),
		}, nil
	}
	return &providers.Download{Available: false}, nil
}

func (f *Fetcher) pdfURL(edition string) string {
	return fmt.Sprintf("%s/books/%s.pdf", f.Config.OpenLibraryBaseURL, edition)
}

// mapDocToCandidate konvertiert einen Such-Treffer in unser Candidate-Modell.
func (f *Fetcher) mapDocToCandidate(d *Doc) models.Candidate {
	edition := d.EditionKey[0]
	year := ""
	if d.FirstPublishYear != 0 {
		year = strconv.Itoa(d.FirstPublishYear)
	}
	isbn := ""
	if len(d.ISBN) > 0 {
		isbn = d.ISBN[0]
	}
	c := models.Candidate{
		Title:             d.Title,
		Author:            strings.Join(d.AuthorName, ", "),
		Edition:           edition,
		Year:              year,
		Source:            "openlibrary",
		ISBN:              isbn,
		DownloadAvailable: d.PublicScan,
		Ref:               models.Ref{"edition": edition},
	}
	if d.PublicScan {
		c.DownloadURL = f.pdfURL(edition)
	}
	return c
}
