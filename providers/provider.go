package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"book-query/models"
)

// ErrUnavailable signalisiert, dass ein Provider nach allen Versuchen nicht
// erreichbar war. Der Aggregator wertet die Quelle dann als "null Treffer",
// bricht die Gesamtsuche aber nicht ab.
var ErrUnavailable = errors.New("provider unavailable")

// Download ist das Ergebnis einer Fetch-Auflösung. Ein nil-Download bedeutet
// "Download nicht erlaubt" und ist ein legitimes Endergebnis, kein Fehler.
type Download struct {
	Available bool   `json:"download_available"`
	URL       string `json:"download_url,omitempty"`
}

// Provider ist das Interface, das jeder Katalog-Provider (z.B. Google Books,
// Open Library) implementieren muss.
type Provider interface {
	// Name gibt den eindeutigen Quell-Tag des Providers zurück (z.B. "google").
	Name() string

	// Search führt eine Suche aus und gibt standardisierte Kandidaten zurück.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	// Fetch löst einen zuvor gelieferten Ref zu einer Download-Quelle auf.
	// nil bedeutet: Download nicht erlaubt.
	Fetch(ctx context.Context, ref models.Ref) (*Download, error)
}

const searchAttempts = 3

// Variable statt Konstante, damit Tests nicht real warten müssen.
var searchRetryDelay = 1 * time.Second

// WithRetry führt eine Provider-Suche mit fester Backoff-Strategie aus:
// maximal drei Versuche, eine Sekunde Pause. Danach ErrUnavailable.
func WithRetry(ctx context.Context, log *zap.Logger, name string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= searchAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Warn("Provider-Anfrage fehlgeschlagen",
			zap.String("provider", name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == searchAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(searchRetryDelay):
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
