package gutenberg

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

const maxResults = 10

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Fetcher implementiert das Provider-Interface für Project Gutenberg (Gutendex).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Gutenberg Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name gibt den Quell-Tag des Providers zurück.
func (f *Fetcher) Name() string {
	return "gutenberg"
}

// Search liefert ausschließlich Treffer, für die Gutendex ein PDF-Format kennt.
func (f *Fetcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	log := f.Logger.With(zap.String("query", query))

	searchURL := fmt.Sprintf("%s/books/?search=%s", f.Config.GutenbergBaseURL, url.QueryEscape(query))

	var br BooksResponse
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
			return fmt.Errorf("gutendex search failed: status %d", resp.StatusCode)
		}
		br = BooksResponse{}
		return json.NewDecoder(resp.Body).Decode(&br)
	})
	if err != nil {
		return nil, err
	}

	books := br.Results
	if len(books) > maxResults {
		books = books[:maxResults]
	}

	var candidates []models.Candidate
	for _, b := range books {
		pdfLink := b.PDFLink()
		if pdfLink == "" {
			log.Debug("Gutendex-Treffer ohne PDF übersprungen", zap.String("title", b.Title))
			continue
		}
		candidates = append(candidates, mapBookToCandidate(&b, pdfLink))
	}
	log.Debug("Gutendex Suche abgeschlossen", zap.Int("count", len(candidates)))
	return candidates, nil
}

// Fetch löst die Buch-ID erneut auf und gibt den direkten PDF-Link zurück.
func (f *Fetcher) Fetch(ctx context.Context, ref models.Ref) (*providers.Download, error) {
	id := ref["id"]
	if id == "" {
		return nil, nil
	}

	bookURL := fmt.Sprintf("%s/books/%s", f.Config.GutenbergBaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bookURL, nil)
	if err != nil {
		return nil, nil
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		f.Logger.Warn("Gutendex Fetch fehlgeschlagen", zap.String("id", id), zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var b Book
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, nil
	}
	if link := b.PDFLink(); link != "" {
		return &providers.Download{Available: true, URL: link}, nil
	}
	return nil, nil
}

// mapBookToCandidate konvertiert ein Gutendex-Buch in unser Candidate-Modell.
func mapBookToCandidate(b *Book, pdfLink string) models.Candidate {
	var authors []string
	for _, a := range b.Authors {
		authors = append(authors, a.Name)
	}
	year := ""
	if b.CopyrightYear != nil {
		year = strconv.Itoa(*b.CopyrightYear)
	}
	return models.Candidate{
		Title:             b.Title,
		Author:            strings.Join(authors, ", "),
		Year:              year,
		Source:            "gutenberg",
		DownloadAvailable: true,
		DownloadURL:       pdfLink,
		Ref:               models.Ref{"id": strconv.Itoa(b.ID)},
	}
}
