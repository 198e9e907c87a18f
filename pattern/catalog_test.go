package pattern_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/parley-go-sdk/memory/embedder/mock"
	"github.com/becomeliminal/parley-go-sdk/pattern"
)

func newTestCatalog(t *testing.T) *pattern.Catalog {
	t.Helper()
	c, err := pattern.NewCatalog(mock.New(32), nil)
	require.NoError(t, err)
	return c
}

func register(t *testing.T, c *pattern.Catalog, trigger string) int {
	t.Helper()
	id, err := c.Register(context.Background(), trigger, []string{"reply"}, nil, nil)
	require.NoError(t, err)
	return id
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := pattern.NewCatalog(nil, nil)
	assert.Error(t, err)

	_, err = pattern.NewCatalog(mock.New(32), &pattern.Config{LearningRate: 0, MinWeight: 0.1, MaxWeight: 10})
	assert.Error(t, err)

	_, err = pattern.NewCatalog(mock.New(32), &pattern.Config{LearningRate: 0.1, MinWeight: 5, MaxWeight: 1})
	assert.Error(t, err)
}

func TestRegisterAssignsMonotonicIDs(t *testing.T) {
	c := newTestCatalog(t)

	assert.Equal(t, 0, register(t, c, "hello there"))
	assert.Equal(t, 1, register(t, c, "how are you"))
	assert.Equal(t, 2, register(t, c, "goodbye now"))
	assert.Equal(t, 3, c.Len())
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "", []string{"r"}, nil, nil)
	assert.Error(t, err)

	_, err = c.Register(ctx, "trigger", nil, nil, nil)
	assert.Error(t, err)
}

func TestCandidatesSimilarityAndOrder(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	register(t, c, "tell me about work")
	register(t, c, "completely different words entirely")

	emb := mock.New(32)
	query, err := emb.Embed(ctx, "tell me about work")
	require.NoError(t, err)

	cands := c.Candidates(query)
	require.Len(t, cands, 2)
	assert.Equal(t, 0, cands[0].ID)
	assert.Equal(t, 1, cands[1].ID)

	// The identical trigger embeds to the same vector: similarity 1.
	assert.InDelta(t, 1.0, cands[0].Similarity, 1e-6)
	assert.Less(t, cands[1].Similarity, cands[0].Similarity)
	assert.Equal(t, 1.0, cands[0].Weight)
}

func TestReinforceMovesWeight(t *testing.T) {
	c := newTestCatalog(t)
	id := register(t, c, "hello there")

	// weight *= 1 + 0.1·(0.9 − 0.5)
	w, err := c.Reinforce(id, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 1.04, w, 1e-9)

	got, err := c.Weight(id)
	require.NoError(t, err)
	assert.InDelta(t, 1.04, got, 1e-9)

	// Negative feedback weakens.
	w, err = c.Reinforce(id, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.04*0.95, w, 1e-9)
}

func TestReinforceClampsWeight(t *testing.T) {
	c := newTestCatalog(t)
	id := register(t, c, "hello there")

	for i := 0; i < 200; i++ {
		_, err := c.Reinforce(id, 1.0)
		require.NoError(t, err)
	}
	w, err := c.Weight(id)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w)

	for i := 0; i < 400; i++ {
		_, err := c.Reinforce(id, 0.0)
		require.NoError(t, err)
	}
	w, err = c.Weight(id)
	require.NoError(t, err)
	assert.Equal(t, 0.1, w)
}

func TestReinforceUnknownPattern(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Reinforce(99, 0.5)
	assert.Error(t, err)

	_, err = c.Weight(-1)
	assert.Error(t, err)
}

func TestUpdateTopicAffinity(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	id, err := c.Register(ctx, "hello there", []string{"r"}, nil, map[string]float64{"work": 0.5})
	require.NoError(t, err)

	require.NoError(t, c.UpdateTopicAffinity(id, "work", true))
	require.NoError(t, c.UpdateTopicAffinity(id, "family", false))

	emb, _ := mock.New(32).Embed(ctx, "hello there")
	cands := c.Candidates(emb)
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.6, cands[0].TopicAffinities["work"], 1e-9)
	// A failed outcome on an unseen topic clamps at zero.
	assert.Equal(t, 0.0, cands[0].TopicAffinities["family"])

	assert.Error(t, c.UpdateTopicAffinity(99, "work", true))
}

func TestTopicAffinityClampsAtOne(t *testing.T) {
	c := newTestCatalog(t)
	id := register(t, c, "hello there")

	for i := 0; i < 20; i++ {
		require.NoError(t, c.UpdateTopicAffinity(id, "work", true))
	}

	emb, _ := mock.New(32).Embed(context.Background(), "hello there")
	cands := c.Candidates(emb)
	assert.Equal(t, 1.0, cands[0].TopicAffinities["work"])
}

func TestCaptures(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	id, err := c.Register(ctx, "i feel (sad|happy|angry)", []string{"r"}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"sad"}, c.Captures(id, "I feel sad today"))
	assert.Nil(t, c.Captures(id, "nothing matches here"))

	plain := register(t, c, "no groups here")
	assert.Nil(t, c.Captures(plain, "no groups here"))
	assert.Nil(t, c.Captures(123, "anything"))
}

func TestRegisterClampsInfluences(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Register(ctx, "hello", []string{"r"},
		map[string]float64{"empathy": 1.8, "curiosity": -0.2},
		map[string]float64{"work": 2.0})
	require.NoError(t, err)

	emb, _ := mock.New(32).Embed(ctx, "hello")
	cands := c.Candidates(emb)
	require.Len(t, cands, 1)
	assert.Equal(t, 1.0, cands[0].TraitInfluences["empathy"])
	assert.Equal(t, 0.0, cands[0].TraitInfluences["curiosity"])
	assert.Equal(t, 1.0, cands[0].TopicAffinities["work"])
}
