package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/becomeliminal/parley-go-sdk/pattern"
	"github.com/becomeliminal/parley-go-sdk/persona"
)

// patternDef is the JSON pattern file entry.
type patternDef struct {
	Trigger         string             `json:"trigger"`
	Responses       []string           `json:"responses"`
	TraitInfluences map[string]float64 `json:"trait_influences,omitempty"`
	TopicAffinities map[string]float64 `json:"topic_affinities,omitempty"`
}

// loadPatterns registers patterns from a JSON file, or the built-in
// starter set when no file is configured.
func loadPatterns(catalog *pattern.Catalog, path string) error {
	defs := builtinPatterns()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read pattern file: %w", err)
		}
		defs = nil
		if err := json.Unmarshal(data, &defs); err != nil {
			return fmt.Errorf("parse pattern file: %w", err)
		}
	}

	ctx := context.Background()
	for i, def := range defs {
		if _, err := catalog.Register(ctx, def.Trigger, def.Responses, def.TraitInfluences, def.TopicAffinities); err != nil {
			return fmt.Errorf("register pattern %d (%q): %w", i, def.Trigger, err)
		}
	}
	return nil
}

func builtinPatterns() []patternDef {
	return []patternDef{
		{
			Trigger:   "hello hi hey greetings",
			Responses: []string{"Hey there! What's on your mind?", "Hello! How are you doing today?"},
			TraitInfluences: map[string]float64{
				persona.TraitPlayfulness: 0.4,
			},
		},
		{
			Trigger:   "how was your day at work today",
			Responses: []string{"Work can take a lot out of you. What happened?", "Sounds like work is on your mind. Tell me about it."},
			TraitInfluences: map[string]float64{
				persona.TraitEmpathy: 0.6,
			},
			TopicAffinities: map[string]float64{"work": 0.3},
		},
		{
			Trigger:   "i feel (sad|happy|angry|anxious|lonely)",
			Responses: []string{"That sounds like a lot to carry. What brought it on?", "Thanks for telling me. How long have you felt that way?"},
			TraitInfluences: map[string]float64{
				persona.TraitEmpathy:        0.8,
				persona.TraitSupportiveness: 0.6,
			},
			TopicAffinities: map[string]float64{"feelings": 0.5},
		},
		{
			Trigger:   "tell me about my family mother father parents",
			Responses: []string{"Family is complicated. Who are you thinking about?", "What's going on with your family?"},
			TopicAffinities: map[string]float64{"family": 0.4},
		},
		{
			Trigger:   "what do you think about computers software technology",
			Responses: []string{"Technology cuts both ways. What's your take?", "Interesting question. What prompted it?"},
			TraitInfluences: map[string]float64{
				persona.TraitCuriosity: 0.7,
			},
			TopicAffinities: map[string]float64{"technology": 0.4},
		},
	}
}
