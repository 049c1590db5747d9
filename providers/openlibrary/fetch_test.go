package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"book-query/config"
	"book-query/models"
)

func TestSearchSkipsDocsWithoutEdition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		w.Write([]byte(`{"docs": [
			{"title": "Moby Dick", "author_name": ["Herman Melville"],
			 "edition_key": ["OL123M"], "first_publish_year": 1851,
			 "isbn": ["9781234567890"], "public_scan_b": true},
			{"title": "Ohne Edition", "author_name": ["Unbekannt"]}
		]}`))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{OpenLibraryBaseURL: server.URL}, zap.NewNop())

	got, err := f.Search(context.Background(), "moby dick")
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Moby Dick", c.Title)
	assert.Equal(t, "Herman Melville", c.Author)
	assert.Equal(t, "OL123M", c.Edition)
	assert.Equal(t, "1851", c.Year)
	assert.Equal(t, "openlibrary", c.Source)
	assert.True(t, c.DownloadAvailable)
	assert.Equal(t, server.URL+"/books/OL123M.pdf", c.DownloadURL)
	assert.Equal(t, models.Ref{"edition": "OL123M"}, c.Ref)
}

func TestSearchCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"docs": [
			{"title": "A", "edition_key": ["OL1M"]},
			{"title": "B", "edition_key": ["OL2M"]},
			{"title": "C", "edition_key": ["OL3M"]},
			{"title": "D", "edition_key": ["OL4M"]},
			{"title": "E", "edition_key": ["OL5M"]},
			{"title": "F", "edition_key": ["OL6M"]}
		]}`))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{OpenLibraryBaseURL: server.URL}, zap.NewNop())

	got, err := f.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, got, maxResults)
}

func TestFetchChecksEditionScanFlag(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantAvailable bool
	}{
		{"freier Scan", `{"public_scan": true}`, true},
		{"gesperrter Scan", `{"public_scan": false}`, false},
		{"Flag fehlt", `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/books/OL123M.json", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := NewFetcher(&config.Config{OpenLibraryBaseURL: server.URL}, zap.NewNop())

			download, err := f.Fetch(context.Background(), models.Ref{"edition": "OL123M"})
			require.NoError(t, err)
			require.NotNil(t, download)
			assert.Equal(t, tt.wantAvailable, download.Available)
		})
	}
}

func TestFetchWithoutRefIsNotPermitted(t *testing.T) {
	f := NewFetcher(&config.Config{}, zap.NewNop())

	download, err := f.Fetch(context.Background(), models.Ref{})
	assert.NoError(t, err)
	assert.Nil(t, download)
}
