package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/becomeliminal/parley-go-sdk/core"
)

// Config holds Store tier bounds and consolidation policy.
type Config struct {
	// ShortTermCapacity bounds the short-term tier. Must be positive.
	ShortTermCapacity int

	// LongTermCapacity bounds the long-term tier. Must be positive.
	LongTermCapacity int

	// AgeHorizon is the age past which a short-term episode is promoted
	// regardless of importance.
	AgeHorizon time.Duration

	// ImportanceThreshold promotes a short-term episode early when its
	// importance exceeds it.
	ImportanceThreshold float64
}

// DefaultConfig returns sensible defaults for local SDK use.
var DefaultConfig = &Config{
	ShortTermCapacity:   50,
	LongTermCapacity:    500,
	AgeHorizon:          time.Hour,
	ImportanceThreshold: 0.7,
}

func (c *Config) validate() error {
	if c.ShortTermCapacity <= 0 {
		return fmt.Errorf("short-term capacity must be positive, got %d", c.ShortTermCapacity)
	}
	if c.LongTermCapacity <= 0 {
		return fmt.Errorf("long-term capacity must be positive, got %d", c.LongTermCapacity)
	}
	if c.AgeHorizon <= 0 {
		return fmt.Errorf("age horizon must be positive, got %s", c.AgeHorizon)
	}
	return nil
}

// Archive receives episodes evicted from the long-term tier. The local SDK
// ships a chromem-go implementation; production deployments can point this
// at pgvector. Archive failures are logged and swallowed: eviction must
// never fail a turn.
type Archive interface {
	Add(ctx context.Context, ep *Episode) error
	Search(ctx context.Context, embedding []float32, k int) ([]*Episode, error)
}

// Store is the dual-tier episodic memory. A Store belongs to exactly one
// conversation and is mutated turn-by-turn, strictly sequentially; it is
// not safe for concurrent use (see Engine for the ownership model).
type Store struct {
	cfg       Config
	shortTerm []*Episode
	longTerm  []*Episode
	archive   Archive
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithArchive routes evicted episodes into an archival index.
func WithArchive(a Archive) Option {
	return func(s *Store) {
		s.archive = a
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time source. Tests use this to age episodes
// past the consolidation horizon without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store. Invalid capacities are a configuration error
// surfaced immediately; there are no recoverable runtime errors after this.
func NewStore(cfg *Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("memory config: %w", err)
	}
	s := &Store{
		cfg:    *cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record inserts a new episode into the short-term tier, computing its
// importance and timestamp. It always succeeds; when the tier overflows a
// consolidation pass restores the capacity invariant.
func (s *Store) Record(ctx context.Context, in EpisodeInput) *Episode {
	ep := newEpisode(in, s.now())
	s.shortTerm = append(s.shortTerm, ep)

	if len(s.shortTerm) > s.cfg.ShortTermCapacity {
		s.Consolidate(ctx)
	}
	return ep
}

// Consolidate promotes short-term episodes whose age exceeds the horizon or
// whose importance exceeds the threshold, then evicts the lowest-importance
// long-term episodes if the long-term tier overflows. Calling it again with
// no new insertions is a no-op.
func (s *Store) Consolidate(ctx context.Context) {
	now := s.now()

	var remain, promote []*Episode
	for _, ep := range s.shortTerm {
		if now.Sub(ep.CreatedAt) > s.cfg.AgeHorizon || ep.Importance > s.cfg.ImportanceThreshold {
			promote = append(promote, ep)
		} else {
			remain = append(remain, ep)
		}
	}

	// Promotion alone may leave the short-term tier over capacity (all
	// episodes young and unimportant). Force-promote oldest-first so no
	// episode is ever dropped without competing on importance in the
	// long-term tier.
	for len(remain) > s.cfg.ShortTermCapacity {
		promote = append(promote, remain[0])
		remain = remain[1:]
	}

	if len(promote) == 0 {
		return
	}

	s.shortTerm = remain
	s.longTerm = append(s.longTerm, promote...)
	s.logger.Debug("consolidated episodes",
		zap.Int("promoted", len(promote)),
		zap.Int("short_term", len(s.shortTerm)),
		zap.Int("long_term", len(s.longTerm)))

	if len(s.longTerm) <= s.cfg.LongTermCapacity {
		return
	}

	// Evict lowest importance first, oldest first among equals.
	sort.SliceStable(s.longTerm, func(i, j int) bool {
		if s.longTerm[i].Importance != s.longTerm[j].Importance {
			return s.longTerm[i].Importance < s.longTerm[j].Importance
		}
		return s.longTerm[i].CreatedAt.Before(s.longTerm[j].CreatedAt)
	})
	evicted := s.longTerm[:len(s.longTerm)-s.cfg.LongTermCapacity]
	s.longTerm = append([]*Episode(nil), s.longTerm[len(s.longTerm)-s.cfg.LongTermCapacity:]...)

	for _, ep := range evicted {
		s.logger.Debug("evicting episode",
			zap.String("id", ep.ID),
			zap.Float64("importance", ep.Importance))
		if s.archive == nil {
			continue
		}
		if err := s.archive.Add(ctx, ep); err != nil {
			s.logger.Warn("archive episode failed", zap.String("id", ep.ID), zap.Error(err))
		}
	}
}

// similarityRank pairs an episode with its query similarity during ranking.
type similarityRank struct {
	ep  *Episode
	sim float64
}

// FindSimilar returns up to k episodes from both tiers ranked by cosine
// similarity to the query embedding, descending; ties break toward higher
// importance, then recency. Episodes without an embedding are skipped.
// Returns an empty slice, never an error, when nothing is indexed.
func (s *Store) FindSimilar(ctx context.Context, embedding []float32, k int) []*Episode {
	if k <= 0 || len(embedding) == 0 {
		return nil
	}

	ranked := make([]similarityRank, 0, len(s.longTerm)+len(s.shortTerm))
	for _, ep := range append(append([]*Episode(nil), s.longTerm...), s.shortTerm...) {
		if len(ep.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, similarityRank{ep: ep, sim: core.Cosine(embedding, ep.Embedding)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].sim != ranked[j].sim {
			return ranked[i].sim > ranked[j].sim
		}
		if ranked[i].ep.Importance != ranked[j].ep.Importance {
			return ranked[i].ep.Importance > ranked[j].ep.Importance
		}
		return ranked[i].ep.CreatedAt.After(ranked[j].ep.CreatedAt)
	})

	out := make([]*Episode, 0, k)
	for _, r := range ranked {
		if len(out) == k {
			break
		}
		r.ep.AccessCount++
		out = append(out, r.ep)
	}

	// Fill remaining slots from the archive, skipping episodes still live
	// in a tier.
	if len(out) < k && s.archive != nil {
		archived, err := s.archive.Search(ctx, embedding, k-len(out))
		if err != nil {
			s.logger.Warn("archive search failed", zap.Error(err))
			return out
		}
		seen := make(map[string]bool, len(out))
		for _, ep := range out {
			seen[ep.ID] = true
		}
		for _, ep := range archived {
			if len(out) == k {
				break
			}
			if seen[ep.ID] {
				continue
			}
			out = append(out, ep)
		}
	}
	return out
}

// TopicRelevant returns up to k episodes tagged with topic, ranked by
// importance descending. When no episode carries the topic it falls back
// to the general importance-ranked pool.
func (s *Store) TopicRelevant(topic string, k int) []*Episode {
	if k <= 0 {
		return nil
	}

	all := append(append([]*Episode(nil), s.longTerm...), s.shortTerm...)
	tagged := all[:0:0]
	for _, ep := range all {
		if ep.Topic == topic {
			tagged = append(tagged, ep)
		}
	}
	if len(tagged) == 0 {
		tagged = all
	}

	sort.SliceStable(tagged, func(i, j int) bool {
		if tagged[i].Importance != tagged[j].Importance {
			return tagged[i].Importance > tagged[j].Importance
		}
		return tagged[i].CreatedAt.After(tagged[j].CreatedAt)
	})

	if len(tagged) > k {
		tagged = tagged[:k]
	}
	return tagged
}

// ShortTermLen reports the current short-term tier size.
func (s *Store) ShortTermLen() int { return len(s.shortTerm) }

// LongTermLen reports the current long-term tier size.
func (s *Store) LongTermLen() int { return len(s.longTerm) }
