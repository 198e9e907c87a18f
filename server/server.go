// Package server exposes the dialogue engine over websocket. Each
// connection is one conversation: it gets a private memory store and
// persona state over the shared pattern catalog and feedback ledger,
// matching the engine's ownership model.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/engine"
	"github.com/becomeliminal/parley-go-sdk/feedback"
	"github.com/becomeliminal/parley-go-sdk/memory"
	"github.com/becomeliminal/parley-go-sdk/pattern"
	"github.com/becomeliminal/parley-go-sdk/persona"
)

// Frame is the wire format in both directions.
//
// Client to server:
//   {"type":"message","text":"..."}
//   {"type":"feedback","pattern_id":3,"score":0.9,"comment":"..."}
//
// Server to client:
//   {"type":"reply","text":"...","pattern_id":3,"score":1.27,"topic":"work"}
//   {"type":"ack"}
//   {"type":"error","text":"..."}
type Frame struct {
	Type      string  `json:"type"`
	Text      string  `json:"text,omitempty"`
	PatternID *int    `json:"pattern_id,omitempty"`
	Score     float64 `json:"score,omitempty"`
	Comment   string  `json:"comment,omitempty"`
	Topic     string  `json:"topic,omitempty"`
}

// Server serves dialogue conversations over websocket.
type Server struct {
	embedder core.Embedder
	catalog  *pattern.Catalog
	ledger   *feedback.Ledger

	memCfg     *memory.Config
	engCfg     *engine.Config
	newArchive func(conversation string) (memory.Archive, error)
	logger     *zap.Logger

	upgrader websocket.Upgrader
}

// Option configures the server.
type Option func(*Server)

// WithMemoryConfig sets the per-conversation memory configuration.
func WithMemoryConfig(cfg *memory.Config) Option {
	return func(s *Server) {
		s.memCfg = cfg
	}
}

// WithEngineConfig sets the per-conversation engine configuration.
func WithEngineConfig(cfg *engine.Config) Option {
	return func(s *Server) {
		s.engCfg = cfg
	}
}

// WithArchiveFactory builds a fresh archive per conversation, keyed by a
// unique conversation id. Evicted episodes from that conversation's memory
// land there.
func WithArchiveFactory(f func(conversation string) (memory.Archive, error)) Option {
	return func(s *Server) {
		s.newArchive = f
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server over a shared catalog and ledger.
func New(embedder core.Embedder, catalog *pattern.Catalog, ledger *feedback.Ledger, opts ...Option) *Server {
	s := &Server{
		embedder: embedder,
		catalog:  catalog,
		ledger:   ledger,
		logger:   zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the websocket upgrade handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveConn)
}

// ListenAndServe runs the server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/chat", s.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) serveConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	eng, err := s.newConversation()
	if err != nil {
		s.logger.Error("conversation setup failed", zap.Error(err))
		return
	}
	s.logger.Info("conversation started", zap.String("remote", conn.RemoteAddr().String()))

	// Recent provenances by pattern id, so feedback frames can be
	// attributed with the topic snapshot of the turn they refer to.
	recent := make(map[int]core.Provenance)

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case "message":
			turn, err := eng.Respond(r.Context(), frame.Text)
			if err != nil {
				s.writeError(conn, fmt.Sprintf("respond: %v", err))
				continue
			}
			if turn.Provenance.PatternID != core.NoPattern {
				recent[turn.Provenance.PatternID] = turn.Provenance
			}
			id := turn.Provenance.PatternID
			s.write(conn, Frame{
				Type:      "reply",
				Text:      turn.Response,
				PatternID: &id,
				Score:     turn.Provenance.Score,
				Topic:     turn.Provenance.Topic,
			})

		case "feedback":
			if frame.PatternID == nil {
				s.writeError(conn, "feedback requires pattern_id")
				continue
			}
			prov, ok := recent[*frame.PatternID]
			if !ok {
				prov = core.Provenance{PatternID: *frame.PatternID}
			}
			eng.ReceiveFeedback(prov, frame.Score, frame.Comment)
			s.write(conn, Frame{Type: "ack"})

		default:
			s.writeError(conn, fmt.Sprintf("unknown frame type: %q", frame.Type))
		}
	}
}

func (s *Server) newConversation() (*engine.Engine, error) {
	var memOpts []memory.Option
	if s.logger != nil {
		memOpts = append(memOpts, memory.WithLogger(s.logger))
	}
	if s.newArchive != nil {
		archive, err := s.newArchive(uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("conversation archive: %w", err)
		}
		memOpts = append(memOpts, memory.WithArchive(archive))
	}
	store, err := memory.NewStore(s.memCfg, memOpts...)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	engOpts := []engine.Option{engine.WithLogger(s.logger)}
	if s.engCfg != nil {
		engOpts = append(engOpts, engine.WithConfig(s.engCfg))
	}
	return engine.NewEngine(s.embedder, s.catalog, s.ledger, store, persona.NewState(nil), engOpts...)
}

func (s *Server) write(conn *websocket.Conn, frame Frame) {
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.Warn("write failed", zap.Error(err))
	}
}

func (s *Server) writeError(conn *websocket.Conn, msg string) {
	s.write(conn, Frame{Type: "error", Text: msg})
}
