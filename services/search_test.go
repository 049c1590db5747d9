package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"book-query/models"
	"book-query/providers"
)

// stubProvider ist ein konfigurierbarer In-Memory-Provider für Tests.
type stubProvider struct {
	name       string
	candidates []models.Candidate
	searchErr  error
	download   *providers.Download
	fetchErr   error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	return s.candidates, s.searchErr
}

func (s *stubProvider) Fetch(ctx context.Context, ref models.Ref) (*providers.Download, error) {
	return s.download, s.fetchErr
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"einfache Wörter", "Specialist Math", []string{"specialist", "math"}},
		{"Interpunktion als Trenner", "Specialist Math!!", []string{"specialist", "math"}},
		{"Unterstriche als Trenner", "The Specialist_Math Guide", []string{"the", "specialist", "math", "guide"}},
		{"Ziffern bleiben erhalten", "Calculus 101", []string{"calculus", "101"}},
		{"leere Query", "", nil},
		{"nur Trenner", "!!! ---", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.query))
		})
	}
}

func TestMatchesTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		query string
		want  bool
	}{
		{"alle Tokens im Titel", "The Specialist Math Guide", "specialist math", true},
		{"zusammengezogener Token trifft", "The Specialist_Math Guide", "specialistmath", true},
		{"Tokens über Satzzeichen hinweg", "Specialist-Math: Volume 2", "specialist math", true},
		{"fehlender Token", "The Specialist Guide", "specialist math", false},
		{"leerer Titel", "", "specialist", false},
		{"Titel nur aus Satzzeichen", "???", "specialist", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(tt.query)
			joined := joinTokens(tokens)
			assert.Equal(t, tt.want, matchesTitle(tt.title, tokens, joined))
		})
	}
}

func joinTokens(tokens []string) string {
	out := ""
	for _, tok := range tokens {
		out += tok
	}
	return out
}

func TestSearchAllKeepsProviderOrder(t *testing.T) {
	first := &stubProvider{name: "google", candidates: []models.Candidate{
		{Title: "Moby Dick", Source: "google"},
	}}
	second := &stubProvider{name: "gutenberg", candidates: []models.Candidate{
		{Title: "Moby Dick; Or, The Whale", Source: "gutenberg"},
	}}
	svc := NewSearchService([]providers.Provider{first, second}, zap.NewNop())

	got := svc.SearchAll(context.Background(), "moby dick")
	require.Len(t, got, 2)
	assert.Equal(t, "google", got[0].Source)
	assert.Equal(t, "gutenberg", got[1].Source)
	assert.NotEmpty(t, got[0].CandidateID)
	assert.NotEmpty(t, got[1].CandidateID)
	assert.NotEqual(t, got[0].CandidateID, got[1].CandidateID)
}

func TestSearchAllFiltersNonMatchingTitles(t *testing.T) {
	p := &stubProvider{name: "google", candidates: []models.Candidate{
		{Title: "Moby Dick", Source: "google"},
		{Title: "War and Peace", Source: "google"},
		{Title: "", Source: "google"},
	}}
	svc := NewSearchService([]providers.Provider{p}, zap.NewNop())

	got := svc.SearchAll(context.Background(), "moby")
	require.Len(t, got, 1)
	assert.Equal(t, "Moby Dick", got[0].Title)
}

func TestSearchAllFailedProviderContributesNothing(t *testing.T) {
	broken := &stubProvider{name: "ia", searchErr: providers.ErrUnavailable}
	healthy := &stubProvider{name: "gutenberg", candidates: []models.Candidate{
		{Title: "Moby Dick", Source: "gutenberg"},
	}}
	svc := NewSearchService([]providers.Provider{broken, healthy}, zap.NewNop())

	got := svc.SearchAll(context.Background(), "moby")
	require.Len(t, got, 1)
	assert.Equal(t, "gutenberg", got[0].Source)
}

func TestSearchAllCapsResults(t *testing.T) {
	var many []models.Candidate
	for i := 0; i < maxSearchResults+10; i++ {
		many = append(many, models.Candidate{
			Title:  fmt.Sprintf("Moby Dick Edition %d", i),
			Source: "gutenberg",
		})
	}
	svc := NewSearchService([]providers.Provider{
		&stubProvider{name: "gutenberg", candidates: many},
	}, zap.NewNop())

	got := svc.SearchAll(context.Background(), "moby dick")
	require.Len(t, got, maxSearchResults)

	seen := make(map[string]struct{}, len(got))
	for _, c := range got {
		require.NotEmpty(t, c.CandidateID)
		seen[c.CandidateID] = struct{}{}
	}
	assert.Len(t, seen, maxSearchResults)
}

func TestSearchAllNoMatchesReturnsEmpty(t *testing.T) {
	p := &stubProvider{name: "google", candidates: []models.Candidate{
		{Title: "War and Peace", Source: "google"},
	}}
	svc := NewSearchService([]providers.Provider{p}, zap.NewNop())

	got := svc.SearchAll(context.Background(), "moby dick")
	assert.Empty(t, got)
}
