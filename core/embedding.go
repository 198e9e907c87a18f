package core

import (
	"context"
	"math"
)

// Embedder converts text to vector embeddings.
// Implementations: MockEmbedder (testing), ONNXEmbedder (local SDK),
// CachedEmbedder (ristretto-backed decorator around either).
//
// The embedding dimension is fixed at construction time; all vectors
// produced by one Embedder have the same length.
type Embedder interface {
	// Embed converts a single text to embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns embedding vector size.
	Dimensions() int
}

// SentimentSource scores the emotional valence of a text in [-1, 1].
// The SDK ships a lexical implementation (persona.Lexicon); callers can
// substitute a model-backed scorer.
type SentimentSource interface {
	Score(text string) float64
}

// Cosine returns the cosine similarity of two vectors, in [-1, 1].
// Mismatched lengths or zero vectors yield 0 rather than an error:
// similarity is always consulted inside ranking loops that must not abort.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
