package pattern

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/becomeliminal/parley-go-sdk/core"
)

// Config holds the reinforcement parameters.
type Config struct {
	// LearningRate scales how far one feedback score moves a pattern's
	// weight: weight *= 1 + rate·(score − 0.5).
	LearningRate float64

	// MinWeight and MaxWeight bound the reinforcement multiplier so a
	// streak of extreme feedback cannot run the weight away.
	MinWeight float64
	MaxWeight float64
}

// DefaultConfig returns the standard reinforcement parameters.
var DefaultConfig = &Config{
	LearningRate: 0.1,
	MinWeight:    0.1,
	MaxWeight:    10,
}

func (c *Config) validate() error {
	if c.LearningRate <= 0 || c.LearningRate >= 1 {
		return fmt.Errorf("learning rate must be in (0, 1), got %g", c.LearningRate)
	}
	if c.MinWeight <= 0 || c.MaxWeight <= c.MinWeight {
		return fmt.Errorf("weight bounds must satisfy 0 < min < max, got [%g, %g]", c.MinWeight, c.MaxWeight)
	}
	return nil
}

// Catalog is the set of registered patterns. It is shared across
// conversations: registration and reinforcement serialize behind a write
// lock, and scoring reads work on snapshots.
type Catalog struct {
	mu       sync.RWMutex
	patterns []*Pattern

	embedder core.Embedder
	cfg      Config
	logger   *zap.Logger
}

// Option configures the catalog.
type Option func(*Catalog)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		c.logger = l
	}
}

// NewCatalog creates an empty catalog backed by the given embedder.
func NewCatalog(embedder core.Embedder, cfg *Config, opts ...Option) (*Catalog, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg == nil {
		cfg = DefaultConfig
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("catalog config: %w", err)
	}
	c := &Catalog{
		embedder: embedder,
		cfg:      *cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register adds a pattern and returns its identifier. Identifiers are
// assigned in registration order starting at zero; scoring ties break
// toward the lowest identifier, so registration order is a priority order.
// Trait influences and initial topic affinities are clamped into [0, 1].
func (c *Catalog) Register(ctx context.Context, trigger string, responses []string, traitInfluences, topicAffinities map[string]float64) (int, error) {
	if trigger == "" {
		return 0, fmt.Errorf("trigger must not be empty")
	}
	if len(responses) == 0 {
		return 0, fmt.Errorf("at least one response template is required")
	}

	embedding, err := c.embedder.Embed(ctx, trigger)
	if err != nil {
		return 0, fmt.Errorf("embed trigger: %w", err)
	}

	influences := make(map[string]float64, len(traitInfluences))
	for trait, v := range traitInfluences {
		influences[trait] = clamp01(v)
	}
	affinities := make(map[string]float64, len(topicAffinities))
	for topic, v := range topicAffinities {
		affinities[topic] = clamp01(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Pattern{
		id:              len(c.patterns),
		trigger:         trigger,
		responses:       append([]string(nil), responses...),
		embedding:       embedding,
		captures:        compileCaptures(trigger),
		traitInfluences: influences,
		topicAffinities: affinities,
		weight:          1.0,
	}
	c.patterns = append(c.patterns, p)

	c.logger.Debug("registered pattern",
		zap.Int("id", p.id),
		zap.String("trigger", trigger),
		zap.Int("responses", len(responses)))
	return p.id, nil
}

// Candidates returns a (pattern, similarity) snapshot for every registered
// pattern, in identifier order. Snapshots are recomputed per call:
// reinforcement weights and affinities may have moved since the last turn.
func (c *Catalog) Candidates(inputEmbedding []float32) []Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Candidate, 0, len(c.patterns))
	for _, p := range c.patterns {
		out = append(out, p.snapshot(core.Cosine(inputEmbedding, p.embedding)))
	}
	return out
}

// Reinforce adjusts a pattern's weight from a feedback score in [0, 1]:
// scores above 0.5 strengthen, below weaken. The new weight is clamped to
// [MinWeight, MaxWeight] and returned.
func (c *Catalog) Reinforce(patternID int, score float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.get(patternID)
	if err != nil {
		return 0, err
	}

	p.weight *= 1 + c.cfg.LearningRate*(score-0.5)
	if p.weight < c.cfg.MinWeight {
		p.weight = c.cfg.MinWeight
	} else if p.weight > c.cfg.MaxWeight {
		p.weight = c.cfg.MaxWeight
	}

	c.logger.Debug("reinforced pattern",
		zap.Int("id", patternID),
		zap.Float64("score", score),
		zap.Float64("weight", p.weight))
	return p.weight, nil
}

// UpdateTopicAffinity moves a pattern's affinity for a topic by the
// outcome: +0.1 on success, −0.05 on failure, clamped to [0, 1].
func (c *Catalog) UpdateTopicAffinity(patternID int, topic string, succeeded bool) error {
	if topic == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.get(patternID)
	if err != nil {
		return err
	}
	if p.topicAffinities == nil {
		p.topicAffinities = make(map[string]float64)
	}

	delta := 0.1
	if !succeeded {
		delta = -0.05
	}
	p.topicAffinities[topic] = clamp01(p.topicAffinities[topic] + delta)
	return nil
}

// Captures extracts the trigger's capture groups from an input, or nil
// when the pattern has no groups or the input does not match.
func (c *Catalog) Captures(patternID int, input string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.get(patternID)
	if err != nil {
		return nil
	}
	return p.captureGroups(input)
}

// Weight returns a pattern's current reinforcement weight.
func (c *Catalog) Weight(patternID int) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.get(patternID)
	if err != nil {
		return 0, err
	}
	return p.weight, nil
}

// Len reports the number of registered patterns.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patterns)
}

// get requires the caller to hold c.mu.
func (c *Catalog) get(patternID int) (*Pattern, error) {
	if patternID < 0 || patternID >= len(c.patterns) {
		return nil, fmt.Errorf("unknown pattern: %d", patternID)
	}
	return c.patterns[patternID], nil
}
