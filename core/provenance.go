package core

// NoPattern is the pattern identifier carried by turns that were answered
// through the fallback path rather than a registered pattern.
const NoPattern = -1

// Provenance identifies where a response came from, so that feedback
// arriving later (possibly much later) can be attributed to the right
// pattern and topic. It is a value snapshot: the engine's state may have
// moved on by the time feedback references it.
type Provenance struct {
	// PatternID is the registered pattern that produced the response,
	// or NoPattern for fallback responses.
	PatternID int

	// Score is the composite score the pattern won with (0 for fallback).
	Score float64

	// Topic is the conversation topic at the time of the response.
	// Feedback uses it to update the pattern's topic affinity.
	Topic string

	// Response is the rendered response text, kept as context for the
	// feedback ledger.
	Response string
}
