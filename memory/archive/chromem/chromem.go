// Package chromem archives evicted episodes in chromem-go, a pure Go
// embedded vector database. Evicted episodes stay searchable by similarity
// even after both memory tiers have let go of them.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/memory"
)

// Archive implements memory.Archive on top of chromem-go. Writes are
// append-only: chromem's API has no delete, which suits an archive.
type Archive struct {
	db  *chromem.DB
	col *chromem.Collection
	mu  sync.Mutex
}

// New creates an in-memory chromem archive with one collection per
// conversation name.
func New(name string) (*Archive, error) {
	db := chromem.NewDB()
	if name == "" {
		name = "episodes"
	}

	col, err := db.CreateCollection(
		name,
		nil, // no custom embedding func (we provide embeddings)
		nil, // no custom distance func (use default cosine)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Archive{db: db, col: col}, nil
}

// Add stores an evicted episode with its embedding.
func (a *Archive) Add(ctx context.Context, ep *memory.Episode) error {
	if len(ep.Embedding) == 0 {
		// Nothing to index; similarity search could never surface it.
		return nil
	}

	content, err := json.Marshal(map[string]any{
		"input":    ep.Input,
		"response": ep.Response,
	})
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}

	doc := chromem.Document{
		ID:        ep.ID,
		Content:   string(content),
		Embedding: ep.Embedding,
		Metadata: map[string]string{
			"topic":      ep.Topic,
			"pattern_id": strconv.Itoa(ep.PatternID),
			"sentiment":  strconv.FormatFloat(ep.Sentiment, 'f', -1, 64),
			"importance": strconv.FormatFloat(ep.Importance, 'f', -1, 64),
			"created_at": ep.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Search returns up to k archived episodes by similarity to the query.
func (a *Archive) Search(ctx context.Context, embedding []float32, k int) ([]*memory.Episode, error) {
	if k <= 0 || len(embedding) == 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// chromem requires nResults <= collection size; retry downward until
	// the query fits or the collection proves empty.
	var results []chromem.Result
	for n := k; n >= 1; n-- {
		var err error
		results, err = a.col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	episodes := make([]*memory.Episode, 0, len(results))
	for _, res := range results {
		ep, err := deserializeEpisode(res)
		if err != nil {
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func deserializeEpisode(res chromem.Result) (*memory.Episode, error) {
	var content struct {
		Input    string `json:"input"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(res.Content), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	patternID := core.NoPattern
	if v, err := strconv.Atoi(res.Metadata["pattern_id"]); err == nil {
		patternID = v
	}
	sentiment, _ := strconv.ParseFloat(res.Metadata["sentiment"], 64)
	importance, _ := strconv.ParseFloat(res.Metadata["importance"], 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])

	return &memory.Episode{
		ID:         res.ID,
		Input:      content.Input,
		Response:   content.Response,
		PatternID:  patternID,
		Sentiment:  sentiment,
		Topic:      res.Metadata["topic"],
		Embedding:  res.Embedding,
		Importance: importance,
		CreatedAt:  createdAt,
	}, nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
