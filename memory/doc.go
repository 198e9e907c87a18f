// Package memory provides a dual-tier episodic store for dialogue agents.
//
// Episodes (one recorded interaction turn each) enter a short-term tier and
// are promoted to the long-term tier by a consolidation pass: an episode
// moves when it has aged past a horizon or when its importance score clears
// a threshold. When the long-term tier overflows, the lowest-importance
// episodes are evicted first.
//
// Architecture:
//   - Store: the two bounded tiers plus the consolidation/eviction policy
//   - Archive: optional vector-indexed destination for evicted episodes
//     (chromem-go for the local SDK, pgvector for production)
//   - Embedder: text-to-vector conversion, supplied by the caller; the
//     store only consumes precomputed vectors
//
// Integration:
//   - the engine records one episode per turn after selecting a response
//   - FindSimilar serves the engine's fallback path and any caller that
//     wants semantic recall over past turns
package memory
