package server_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/parley-go-sdk/engine"
	"github.com/becomeliminal/parley-go-sdk/feedback"
	"github.com/becomeliminal/parley-go-sdk/memory"
	"github.com/becomeliminal/parley-go-sdk/memory/archive/chromem"
	"github.com/becomeliminal/parley-go-sdk/memory/embedder/mock"
	"github.com/becomeliminal/parley-go-sdk/pattern"
	"github.com/becomeliminal/parley-go-sdk/server"
)

func dial(t *testing.T, srv *server.Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newServer(t *testing.T) (*server.Server, *pattern.Catalog, *feedback.Ledger) {
	t.Helper()
	embedder := mock.New(32)
	catalog, err := pattern.NewCatalog(embedder, nil)
	require.NoError(t, err)
	_, err = catalog.Register(context.Background(), "tell me about your work", []string{"Work reply."}, nil, nil)
	require.NoError(t, err)

	ledger := feedback.NewLedger()
	srv := server.New(embedder, catalog, ledger,
		server.WithEngineConfig(&engine.Config{
			MinConfidence:    0.05,
			FallbackK:        5,
			SuccessThreshold: 0.6,
		}))
	return srv, catalog, ledger
}

func roundtrip(t *testing.T, conn *websocket.Conn, out server.Frame) server.Frame {
	t.Helper()
	require.NoError(t, conn.WriteJSON(out))
	var in server.Frame
	require.NoError(t, conn.ReadJSON(&in))
	return in
}

func TestMessageReply(t *testing.T) {
	srv, _, _ := newServer(t)
	conn := dial(t, srv)

	reply := roundtrip(t, conn, server.Frame{Type: "message", Text: "tell me about your work"})

	assert.Equal(t, "reply", reply.Type)
	assert.Equal(t, "Work reply.", reply.Text)
	require.NotNil(t, reply.PatternID)
	assert.Equal(t, 0, *reply.PatternID)
	assert.Equal(t, "work", reply.Topic)
	assert.Positive(t, reply.Score)
}

func TestFeedbackAck(t *testing.T) {
	srv, catalog, ledger := newServer(t)
	conn := dial(t, srv)

	reply := roundtrip(t, conn, server.Frame{Type: "message", Text: "tell me about your work"})
	require.NotNil(t, reply.PatternID)

	ack := roundtrip(t, conn, server.Frame{
		Type:      "feedback",
		PatternID: reply.PatternID,
		Score:     0.9,
		Comment:   "helpful",
	})
	assert.Equal(t, "ack", ack.Type)

	w, err := catalog.Weight(*reply.PatternID)
	require.NoError(t, err)
	assert.InDelta(t, 1.04, w, 1e-9)
	assert.InDelta(t, 0.9, ledger.Performance(*reply.PatternID).Average, 1e-9)
}

func TestFeedbackWithoutPatternID(t *testing.T) {
	srv, _, _ := newServer(t)
	conn := dial(t, srv)

	resp := roundtrip(t, conn, server.Frame{Type: "feedback", Score: 0.9})
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Text, "pattern_id")
}

func TestUnknownFrameType(t *testing.T) {
	srv, _, _ := newServer(t)
	conn := dial(t, srv)

	resp := roundtrip(t, conn, server.Frame{Type: "bogus"})
	assert.Equal(t, "error", resp.Type)
}

func TestArchiveFactoryRunsPerConversation(t *testing.T) {
	embedder := mock.New(32)
	catalog, err := pattern.NewCatalog(embedder, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var conversations []string
	srv := server.New(embedder, catalog, feedback.NewLedger(),
		server.WithArchiveFactory(func(conversation string) (memory.Archive, error) {
			mu.Lock()
			defer mu.Unlock()
			conversations = append(conversations, conversation)
			return chromem.New(conversation)
		}))

	first := dial(t, srv)
	second := dial(t, srv)
	roundtrip(t, first, server.Frame{Type: "message", Text: "hello"})
	roundtrip(t, second, server.Frame{Type: "message", Text: "hello"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, conversations, 2)
	assert.NotEqual(t, conversations[0], conversations[1])
}

func TestConversationsAreIsolated(t *testing.T) {
	srv, _, _ := newServer(t)
	first := dial(t, srv)
	second := dial(t, srv)

	// Drive the first conversation several turns; the second stays fresh,
	// so its first reply matches a brand new conversation's.
	for i := 0; i < 3; i++ {
		roundtrip(t, first, server.Frame{Type: "message", Text: "tell me about your work"})
	}

	fresh := roundtrip(t, second, server.Frame{Type: "message", Text: "tell me about your work"})
	assert.Equal(t, "reply", fresh.Type)
	assert.Equal(t, "Work reply.", fresh.Text)
}
