// Package pattern holds the registered response templates and their
// learned state: a reinforcement weight moved multiplicatively by feedback
// and per-topic affinities moved by outcomes.
package pattern

import (
	"regexp"
	"strings"
)

// Pattern is one registered trigger with its response templates and
// learned state. Patterns live for the process lifetime and are mutated in
// place, always under the catalog's lock; callers only ever see Candidate
// snapshots.
type Pattern struct {
	id        int
	trigger   string
	responses []string
	embedding []float32

	// captures is non-nil when the trigger carries regexp capture groups.
	captures *regexp.Regexp

	traitInfluences map[string]float64
	topicAffinities map[string]float64
	weight          float64
}

// Candidate is an immutable snapshot of a pattern taken at scoring time,
// paired with its embedding similarity to the current input. A reader
// holding a Candidate never observes a concurrent weight or affinity
// update.
type Candidate struct {
	ID         int
	Similarity float64
	Weight     float64
	Responses  []string

	TraitInfluences map[string]float64
	TopicAffinities map[string]float64
}

func (p *Pattern) snapshot(similarity float64) Candidate {
	return Candidate{
		ID:              p.id,
		Similarity:      similarity,
		Weight:          p.weight,
		Responses:       append([]string(nil), p.responses...),
		TraitInfluences: copyMap(p.traitInfluences),
		TopicAffinities: copyMap(p.topicAffinities),
	}
}

// compileCaptures compiles the trigger as a regexp when it contains a
// capture group. Triggers that fail to compile are treated as plain text.
func compileCaptures(trigger string) *regexp.Regexp {
	if !strings.Contains(trigger, "(") {
		return nil
	}
	re, err := regexp.Compile("(?i)" + trigger)
	if err != nil {
		return nil
	}
	return re
}

// captureGroups extracts the trigger's capture groups from an input, or
// nil when the trigger has none or the input does not match.
func (p *Pattern) captureGroups(input string) []string {
	if p.captures == nil {
		return nil
	}
	m := p.captures.FindStringSubmatch(input)
	if len(m) < 2 {
		return nil
	}
	return m[1:]
}

func copyMap(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
