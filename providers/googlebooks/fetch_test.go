package googlebooks

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

const volumesPayload = `{
	"items": [
		{
			"id": "vol-1",
			"volumeInfo": {
				"title": "Moby Dick",
				"subtitle": "Or, The Whale",
				"authors": ["Herman Melville", "Someone Else"],
				"publishedDate": "1851-10-18",
				"industryIdentifiers": [
					{"type": "ISBN_13", "identifier": "9781234567890"}
				]
			},
			"accessInfo": {
				"viewability": "PARTIAL",
				"webReaderLink": "https://play.google.com/books/reader?id=vol-1"
			}
		},
		{
			"id": "",
			"volumeInfo": {"title": "Ohne ID"}
		}
	]
}`

func TestSearchMapsVolumes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "moby dick", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(volumesPayload))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{
		GoogleBooksBaseURL: server.URL,
		GoogleBooksKey:     "test-key",
	}, zap.NewNop())

	got, err := f.Search(context.Background(), "moby dick")
	require.NoError(t, err)
	// Items ohne ID werden verworfen, weil ihr Ref nicht auflösbar wäre.
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Moby Dick", c.Title)
	assert.Equal(t, "Herman Melville, Someone Else", c.Author)
	assert.Equal(t, "Or, The Whale", c.Edition)
	assert.Equal(t, "1851", c.Year)
	assert.Equal(t, "google", c.Source)
	assert.Equal(t, "9781234567890", c.ISBN)
	assert.False(t, c.DownloadAvailable)
	assert.Empty(t, c.DownloadURL)
	assert.Equal(t, models.Ref{"id": "vol-1"}, c.Ref)
	assert.Equal(t, "PARTIAL", c.Viewability)
	assert.Equal(t, "https://play.google.com/books/reader?id=vol-1", c.WebReaderURL)
}

func TestFetchNeverPermitsDownload(t *testing.T) {
	f := NewFetcher(&config.Config{}, zap.NewNop())

	download, err := f.Fetch(context.Background(), models.Ref{"id": "vol-1"})
	assert.NoError(t, err)
	assert.Nil(t, download)
}
