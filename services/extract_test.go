package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractorReadsPagesInOrder(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample.pdf"))
	require.NoError(t, err)

	chunks, err := NewPDFExtractor().Extract(context.Background(),
		bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	// Die leere zweite Seite liefert keinen Chunk; die übrigen kommen in
	// Seitenreihenfolge.
	assert.Equal(t, []string{"Page one text", "Page three text"}, chunks)
}

func TestPDFExtractorRejectsNonPDF(t *testing.T) {
	data := []byte("definitely not a pdf")

	_, err := NewPDFExtractor().Extract(context.Background(),
		bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}

func TestPDFExtractorHonoursCancelledContext(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample.pdf"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewPDFExtractor().Extract(ctx, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, context.Canceled)
}
