package memory

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/becomeliminal/parley-go-sdk/core"
)

// Episode is one recorded interaction turn. Episodes are owned by the
// Store: callers hand in an EpisodeInput and receive the constructed
// episode back. Only the access counter mutates after construction;
// importance is recomputed solely through Reconsolidate.
type Episode struct {
	ID        string
	Input     string
	Response  string
	PatternID int // core.NoPattern when the response came from fallback
	Sentiment float64
	Topic     string
	Embedding []float32

	Importance  float64
	CreatedAt   time.Time
	AccessCount int
}

// EpisodeInput carries the fields the caller knows at record time.
// FeedbackScore and PatternSuccess are optional: nil means no evidence,
// which contributes zero to importance rather than counting against it.
type EpisodeInput struct {
	Input     string
	Response  string
	PatternID int
	Sentiment float64
	Topic     string
	Embedding []float32

	FeedbackScore  *float64
	PatternSuccess *float64
}

// Importance weighs how strongly an episode resists eviction:
// 0.3·|sentiment| + 0.4·feedback + 0.3·pattern success, absent terms zero.
func computeImportance(sentiment float64, feedback, success *float64) float64 {
	imp := 0.3 * math.Abs(sentiment)
	if feedback != nil {
		imp += 0.4 * *feedback
	}
	if success != nil {
		imp += 0.3 * *success
	}
	return imp
}

func newEpisode(in EpisodeInput, now time.Time) *Episode {
	patternID := in.PatternID
	if patternID < 0 {
		patternID = core.NoPattern
	}
	return &Episode{
		ID:         uuid.New().String(),
		Input:      in.Input,
		Response:   in.Response,
		PatternID:  patternID,
		Sentiment:  clampSentiment(in.Sentiment),
		Topic:      in.Topic,
		Embedding:  in.Embedding,
		Importance: computeImportance(clampSentiment(in.Sentiment), in.FeedbackScore, in.PatternSuccess),
		CreatedAt:  now,
	}
}

// Reconsolidate re-derives the episode's importance with fresh evidence,
// e.g. after feedback arrives for the turn that produced it.
func (e *Episode) Reconsolidate(feedback, success *float64) {
	e.Importance = computeImportance(e.Sentiment, feedback, success)
}

func clampSentiment(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
