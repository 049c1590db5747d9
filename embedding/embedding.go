package embedding

import "context"

// Embedder wandelt freien Text in eine numerische Vektor-Repräsentation um.
// Die Ingestion-Pipeline bekommt die Fähigkeit injiziert und kennt das
// konkrete Modell nicht.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}
