package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"book-query/models"
	"book-query/providers"
)

const (
	// Obergrenze der zusammengeführten Suchergebnisse.
	maxSearchResults = 40
	// Zeitbudget pro Provider; ein hängender Katalog blockiert die anderen nicht.
	providerSearchTimeout = 10 * time.Second
)

// SearchService fächert eine Suche auf alle Provider auf, filtert per
// Titel-Token-Matching und deckelt das Ergebnis. Die Suche ist rein lesend
// und persistiert nichts.
type SearchService struct {
	Providers []providers.Provider
	Logger    *zap.Logger
}

// NewSearchService erstellt eine neue Instanz des SearchService.
func NewSearchService(provs []providers.Provider, logger *zap.Logger) *SearchService {
	return &SearchService{Providers: provs, Logger: logger}
}

// SearchAll ruft alle Provider parallel auf und merged die Treffer in
// Provider-Reihenfolge. Ein ausgefallener Provider trägt null Treffer bei.
func (s *SearchService) SearchAll(ctx context.Context, query string) []models.Candidate {
	log := s.Logger.With(zap.String("query", query))

	tokens := tokenize(query)
	joined := strings.Join(tokens, "")

	// Slots pro Provider, damit die Reihenfolge Quelle-dann-Fund erhalten bleibt.
	results := make([][]models.Candidate, len(s.Providers))
	var wg sync.WaitGroup
	for i, p := range s.Providers {
		wg.Add(1)
		go func(i int, p providers.Provider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, providerSearchTimeout)
			defer cancel()

			candidates, err := p.Search(pctx, query)
			if err != nil {
				log.Warn("Provider-Suche ohne Ergebnis",
					zap.String("provider", p.Name()), zap.Error(err))
				return
			}
			results[i] = candidates
		}(i, p)
	}
	wg.Wait()

	merged := make([]models.Candidate, 0, maxSearchResults)
	for _, batch := range results {
		for _, c := range batch {
			if len(merged) == maxSearchResults {
				return merged
			}
			if !matchesTitle(c.Title, tokens, joined) {
				continue
			}
			c.CandidateID = uuid.NewString()
			merged = append(merged, c)
		}
	}

	log.Info("Suche bei allen Providern abgeschlossen", zap.Int("candidates", len(merged)))
	return merged
}

// tokenize zerlegt die Query in klein geschriebene maximale Läufe aus
// alphanumerischen Zeichen; alles andere ist Trenner.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// matchesTitle hält einen Kandidaten, wenn jeder Query-Token im normalisierten
// Titel vorkommt oder der zusammengezogene Token als Ganzes enthalten ist
// (fängt Queries ohne Leerzeichen wie "specialistmath" ab). Kandidaten ohne
// Titel werden verworfen.
func matchesTitle(title string, tokens []string, joined string) bool {
	normalized := strings.Join(tokenize(title), "")
	if normalized == "" {
		return false
	}

	all := true
	for _, tok := range tokens {
		if !strings.Contains(normalized, tok) {
			all = false
			break
		}
	}
	if all {
		return true
	}
	return joined != "" && strings.Contains(normalized, joined)
}
