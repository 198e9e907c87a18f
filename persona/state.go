package persona

import (
	"fmt"
	"strings"

	"github.com/becomeliminal/parley-go-sdk/core"
)

// Trait names. The set is fixed; State rejects adjustments to anything
// else.
const (
	TraitEmpathy        = "empathy"
	TraitCuriosity      = "curiosity"
	TraitFormality      = "formality"
	TraitSupportiveness = "supportiveness"
	TraitPlayfulness    = "playfulness"
)

// Traits lists every trait name in a fixed order.
var Traits = []string{
	TraitEmpathy,
	TraitCuriosity,
	TraitFormality,
	TraitSupportiveness,
	TraitPlayfulness,
}

// formalityIndicators are tokens whose presence nudges the formality
// trait upward.
var formalityIndicators = map[string]bool{
	"please": true, "kindly": true, "sir": true, "madam": true,
	"regards": true, "mr": true, "mrs": true, "ms": true, "dr": true,
}

// Observation summarizes what one turn's input did to the state.
type Observation struct {
	Topic      string
	TopicShift bool
	Depth      int
	Sentiment  float64
}

// State is the mutable personality profile of one conversation: trait
// scalars in [0, 1] plus the topic/depth tracker. Created once per
// conversation, mutated every turn, reset only at session boundaries. Like
// the memory store it belongs to exactly one conversation and is not safe
// for concurrent use.
type State struct {
	traits        map[string]float64
	topic         string
	depth         int
	turn          int
	prevSentiment float64

	sentiment core.SentimentSource
}

// NewState creates a fresh state with every trait at 0.5. A nil sentiment
// source selects the built-in lexicon.
func NewState(sentiment core.SentimentSource) *State {
	if sentiment == nil {
		sentiment = NewLexicon()
	}
	s := &State{
		traits:    make(map[string]float64, len(Traits)),
		topic:     GeneralTopic,
		sentiment: sentiment,
	}
	for _, t := range Traits {
		s.traits[t] = 0.5
	}
	return s
}

// Observe applies one turn's input to the state: topic/depth tracking,
// then the trait update rules. Traits only ever increase here; decreases
// go through Adjust. Malformed or empty input classifies as the general
// topic with zero sentiment rather than failing the turn.
func (s *State) Observe(input string) Observation {
	topic := ClassifyTopic(input)
	shifted := topic != s.topic
	if shifted {
		s.topic = topic
		s.depth = 0
	} else {
		s.depth++
	}

	sentiment := s.sentiment.Score(input)
	if delta := sentiment - s.prevSentiment; delta > 0.3 || delta < -0.3 {
		s.raise(TraitEmpathy, 0.1)
	}
	s.prevSentiment = sentiment

	if strings.Contains(input, "?") {
		s.raise(TraitCuriosity, 0.05)
	}
	for word := range tokenize(input) {
		if formalityIndicators[word] {
			s.raise(TraitFormality, 0.05)
			break
		}
	}

	s.turn++
	return Observation{
		Topic:      topic,
		TopicShift: shifted,
		Depth:      s.depth,
		Sentiment:  sentiment,
	}
}

// Trait returns the current value of a trait, or 0 for unknown names.
func (s *State) Trait(name string) float64 {
	return s.traits[name]
}

// Adjust moves a trait by delta, clamped to [0, 1]. This is the only path
// by which a trait can decrease; it is reserved for external
// personality-preference feedback.
func (s *State) Adjust(name string, delta float64) error {
	if _, ok := s.traits[name]; !ok {
		return fmt.Errorf("unknown trait: %s", name)
	}
	v := s.traits[name] + delta
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.traits[name] = v
	return nil
}

// Topic returns the current conversation topic.
func (s *State) Topic() string { return s.topic }

// Depth returns the number of consecutive turns spent on the current
// topic.
func (s *State) Depth() int { return s.depth }

// Turn returns the number of turns observed.
func (s *State) Turn() int { return s.turn }

// Reset restores the session-start state: traits at 0.5, general topic,
// zero counters.
func (s *State) Reset() {
	for _, t := range Traits {
		s.traits[t] = 0.5
	}
	s.topic = GeneralTopic
	s.depth = 0
	s.turn = 0
	s.prevSentiment = 0
}

func (s *State) raise(name string, delta float64) {
	v := s.traits[name] + delta
	if v > 1 {
		v = 1
	}
	s.traits[name] = v
}
