// Package engine runs the dialogue decision loop: score every registered
// pattern against the input, select a winner or fall back to episodic
// memory, and fold the outcome back into personality and memory state.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/feedback"
	"github.com/becomeliminal/parley-go-sdk/memory"
	"github.com/becomeliminal/parley-go-sdk/pattern"
	"github.com/becomeliminal/parley-go-sdk/persona"
)

// Composite score weights. The similarity/performance core is scaled by
// the pattern's reinforcement weight; topic and trait bonuses are added on
// top.
const (
	similarityWeight  = 0.4
	avgScoreWeight    = 0.3
	confidenceWeight  = 0.3
	deepTopicDepth    = 3
)

// Fallback templates. The depth-gated pair is the branch guaranteed never
// to fail: it depends on nothing but the topic depth counter.
const (
	clarifyDeepPrompt    = "We've been on this for a while now. Are we still talking about the same concern, or has something shifted?"
	clarifyShallowPrompt = "Tell me more about that."
)

// Config holds the engine's selection parameters.
type Config struct {
	// MinConfidence is the score floor: when every candidate scores below
	// it, the engine takes the fallback path.
	MinConfidence float64

	// FallbackK is how many episodes the fallback consults.
	FallbackK int

	// SuccessThreshold is the feedback score at or above which an outcome
	// counts as a success for topic-affinity updates.
	SuccessThreshold float64
}

// DefaultConfig returns the standard selection parameters.
var DefaultConfig = &Config{
	MinConfidence:    0.3,
	FallbackK:        5,
	SuccessThreshold: 0.6,
}

func (c *Config) validate() error {
	if c.FallbackK <= 0 {
		return fmt.Errorf("fallback k must be positive, got %d", c.FallbackK)
	}
	if c.SuccessThreshold < 0 || c.SuccessThreshold > 1 {
		return fmt.Errorf("success threshold must be in [0, 1], got %g", c.SuccessThreshold)
	}
	return nil
}

// Engine orchestrates one conversation. The catalog and ledger may be
// shared across engines (they serialize internally); the memory store and
// persona state must be private to this engine. Respond and
// ReceiveFeedback on one Engine must not be called concurrently.
type Engine struct {
	embedder core.Embedder
	catalog  *pattern.Catalog
	ledger   *feedback.Ledger
	memory   *memory.Store
	state    *persona.State

	cfg    Config
	logger *zap.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithConfig overrides the default selection parameters.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = *cfg
		}
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(embedder core.Embedder, catalog *pattern.Catalog, ledger *feedback.Ledger, mem *memory.Store, state *persona.State, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if mem == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if state == nil {
		return nil, fmt.Errorf("persona state is required")
	}

	e := &Engine{
		embedder: embedder,
		catalog:  catalog,
		ledger:   ledger,
		memory:   mem,
		state:    state,
		cfg:      *DefaultConfig,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return e, nil
}

// Turn is the result of one Respond call.
type Turn struct {
	// Response is the rendered response text.
	Response string

	// Provenance attributes the response for later feedback.
	Provenance core.Provenance

	// Captures holds the winning trigger's capture groups, when any.
	Captures []string

	// Fallback reports whether the response came from the fallback path
	// rather than a scored pattern.
	Fallback bool
}

// Respond processes one turn of user input. It always produces a
// response: scoring failures and empty catalogs degrade to the fallback
// path rather than erroring.
func (e *Engine) Respond(ctx context.Context, input string) (*Turn, error) {
	// Classify the incoming topic up front so the topic bonus reflects
	// the turn being scored; the full state update happens after
	// selection.
	topic := persona.ClassifyTopic(input)

	embedding, err := e.embedder.Embed(ctx, input)
	if err != nil {
		// Degrade: zero similarity everywhere, likely fallback.
		e.logger.Warn("embed input failed", zap.Error(err))
		embedding = nil
	}

	best, found := e.selectPattern(embedding, topic)

	obs := e.state.Observe(input)

	var turn *Turn
	if found {
		responses := best.candidate.Responses
		response := responses[e.state.Turn()%len(responses)]
		turn = &Turn{
			Response: response,
			Provenance: core.Provenance{
				PatternID: best.candidate.ID,
				Score:     best.score,
				Topic:     obs.Topic,
				Response:  response,
			},
			Captures: e.catalog.Captures(best.candidate.ID, input),
		}
		e.logger.Debug("selected pattern",
			zap.Int("pattern_id", best.candidate.ID),
			zap.Float64("score", best.score),
			zap.String("topic", obs.Topic))
	} else {
		turn = e.fallback(ctx, embedding, obs)
	}

	e.memory.Record(ctx, memory.EpisodeInput{
		Input:     input,
		Response:  turn.Response,
		PatternID: turn.Provenance.PatternID,
		Sentiment: obs.Sentiment,
		Topic:     obs.Topic,
		Embedding: embedding,
	})

	return turn, nil
}

type scored struct {
	candidate pattern.Candidate
	score     float64
}

// selectPattern scores every candidate and returns the winner, or false
// when the catalog is empty or nothing clears the confidence floor. Ties
// break toward the lowest pattern identifier: candidates arrive in
// registration order and only a strictly higher score displaces the
// leader.
func (e *Engine) selectPattern(embedding []float32, topic string) (scored, bool) {
	var best scored
	found := false

	for _, c := range e.catalog.Candidates(embedding) {
		perf := e.ledger.Performance(c.ID)

		var traitMatch float64
		if len(c.TraitInfluences) > 0 {
			for trait, influence := range c.TraitInfluences {
				traitMatch += influence * e.state.Trait(trait)
			}
			traitMatch /= float64(len(c.TraitInfluences))
		}
		topicBonus := c.TopicAffinities[topic]

		score := c.Weight*(similarityWeight*c.Similarity+
			avgScoreWeight*perf.Average+
			confidenceWeight*perf.Confidence) +
			topicBonus + traitMatch

		if !found || score > best.score {
			best = scored{candidate: c, score: score}
			found = true
		}
	}

	if !found || best.score < e.cfg.MinConfidence {
		return scored{}, false
	}
	return best, true
}

// fallback answers a turn no pattern could claim. It first tries to reuse
// the highest-importance similar past response; failing that it emits one
// of two clarifying prompts gated solely by topic depth. This branch
// cannot fail.
func (e *Engine) fallback(ctx context.Context, embedding []float32, obs persona.Observation) *Turn {
	if results := e.memory.FindSimilar(ctx, embedding, e.cfg.FallbackK); len(results) > 0 {
		recalled := results[0]
		for _, ep := range results[1:] {
			if ep.Importance > recalled.Importance {
				recalled = ep
			}
		}
		e.logger.Debug("fallback reused past response",
			zap.String("episode_id", recalled.ID),
			zap.Float64("importance", recalled.Importance))
		return &Turn{
			Response: recalled.Response,
			Provenance: core.Provenance{
				PatternID: core.NoPattern,
				Topic:     obs.Topic,
				Response:  recalled.Response,
			},
			Fallback: true,
		}
	}

	response := clarifyShallowPrompt
	if obs.Depth > deepTopicDepth {
		response = clarifyDeepPrompt
	}
	return &Turn{
		Response: response,
		Provenance: core.Provenance{
			PatternID: core.NoPattern,
			Topic:     obs.Topic,
			Response:  response,
		},
		Fallback: true,
	}
}

// ReceiveFeedback attributes an out-of-band feedback score to the pattern
// that produced a response: the ledger records it, the pattern's
// reinforcement weight moves, and its affinity for the response's topic
// updates by whether the score clears the success threshold. Feedback for
// fallback responses or unknown patterns is logged and dropped.
func (e *Engine) ReceiveFeedback(prov core.Provenance, score float64, comment string) {
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	if prov.PatternID == core.NoPattern {
		e.logger.Debug("feedback on fallback response ignored", zap.Float64("score", score))
		return
	}

	newWeight, err := e.catalog.Reinforce(prov.PatternID, score)
	if err != nil {
		// Stale reference: the pattern was never registered here.
		e.logger.Warn("dropping stale feedback",
			zap.Int("pattern_id", prov.PatternID),
			zap.Error(err))
		return
	}

	e.ledger.Record(prov.PatternID, score, prov.Response, comment)

	succeeded := score >= e.cfg.SuccessThreshold
	if err := e.catalog.UpdateTopicAffinity(prov.PatternID, prov.Topic, succeeded); err != nil {
		e.logger.Warn("topic affinity update failed",
			zap.Int("pattern_id", prov.PatternID),
			zap.Error(err))
	}

	e.logger.Debug("feedback applied",
		zap.Int("pattern_id", prov.PatternID),
		zap.Float64("score", score),
		zap.Float64("weight", newWeight),
		zap.Bool("succeeded", succeeded))
}

// State exposes the engine's persona state, e.g. for external trait
// adjustment.
func (e *Engine) State() *persona.State { return e.state }

// Memory exposes the engine's episodic store.
func (e *Engine) Memory() *memory.Store { return e.memory }
