package feedback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/parley-go-sdk/feedback"
)

func TestPerformanceUnseenPatternIsNeutral(t *testing.T) {
	l := feedback.NewLedger()

	perf := l.Performance(42)
	assert.Zero(t, perf.Average)
	assert.Zero(t, perf.Confidence)
}

func TestRecordClampsScore(t *testing.T) {
	l := feedback.NewLedger()

	low := l.Record(1, -0.5, "ctx", "")
	high := l.Record(1, 1.7, "ctx", "")

	assert.Equal(t, 0.0, low.Score)
	assert.Equal(t, 1.0, high.Score)

	perf := l.Performance(1)
	assert.InDelta(t, 0.5, perf.Average, 1e-9)
}

func TestPerformanceAveragesAndConfidence(t *testing.T) {
	l := feedback.NewLedger()

	for i := 0; i < 50; i++ {
		l.Record(7, 0.8, "ctx", "")
	}

	perf := l.Performance(7)
	assert.InDelta(t, 0.8, perf.Average, 1e-9)
	assert.InDelta(t, 0.5, perf.Confidence, 1e-9)
}

func TestConfidenceSaturates(t *testing.T) {
	l := feedback.NewLedger()

	for i := 0; i < 150; i++ {
		l.Record(3, 0.5, "ctx", "")
	}
	assert.Equal(t, 1.0, l.Performance(3).Confidence)
}

func TestEntriesKeepInsertionOrder(t *testing.T) {
	l := feedback.NewLedger()

	l.Record(2, 0.1, "first reply", "too curt")
	l.Record(2, 0.9, "second reply", "")

	entries := l.Entries(2)
	require.Len(t, entries, 2)
	assert.Equal(t, "first reply", entries[0].Context)
	assert.Equal(t, "too curt", entries[0].Comment)
	assert.Equal(t, 0.9, entries[1].Score)
	assert.NotEmpty(t, entries[0].ID)

	// Separate patterns are isolated.
	assert.Empty(t, l.Entries(99))
}
