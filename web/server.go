// Package web serves the browser pages and the JSON API behind them. Each
// browser gets a session cookie; its UI state lives in a session.Store.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	cfg "github.com/voicevision/voicevision/config"
	"github.com/voicevision/voicevision/metrics"
	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/tutor"
)

type Server struct {
	cfg      *cfg.Root
	pipe     *orchestrator.Pipeline
	tutor    *tutor.Tutor
	store    session.Store
	metrics  *metrics.Collector
	logger   *logrus.Logger
	log      *logrus.Entry
	now      func() time.Time
	pages    map[string]*template.Template
	upgrader websocket.Upgrader
	locks    keyedMutex
	mux      *http.ServeMux
}

type Option func(*Server)

func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = l
		s.log = l.WithField("component", "web")
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(c *cfg.Root, p *orchestrator.Pipeline, t *tutor.Tutor, store session.Store, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:   c,
		pipe:  p,
		tutor: t,
		store: store,
		now:   time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		locks: keyedMutex{m: map[string]*lockRef{}},
		mux:   http.NewServeMux(),
	}
	WithLogger(logrus.StandardLogger())(s)
	for _, o := range opts {
		o(s)
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	s.routes()
	return s, nil
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, Instrument(s.metrics, pattern, h))
}

func (s *Server) routes() {
	s.handle("GET /{$}", s.handlePage)
	for _, p := range pageOrder {
		if p.Name != "home" {
			s.handle("GET /"+p.Name, s.handlePage)
		}
	}
	s.mux.Handle("GET /static/", staticHandler())
	s.handle("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.handle("POST /api/v1/user", s.handleSetUser)
	s.handle("GET /api/v1/session", s.handleSession)
	s.handle("GET /api/v1/progress", s.handleProgress)

	s.handle("POST /api/v1/transcribe", s.handleTranscribe)
	s.handle("GET /api/v1/transcribe/export", s.handleExport)

	s.handle("GET /api/v1/languages", s.handleLanguages)
	s.handle("POST /api/v1/translate", s.handleTranslate)
	s.handle("POST /api/v1/translate/swap", s.handleSwap)
	s.handle("GET /api/v1/translate/history", s.handleHistory)
	s.handle("DELETE /api/v1/translate/history", s.handleClearHistory)
	s.handle("GET /api/v1/translate/download", s.handleDownloadTranslation)
	s.handle("GET /api/v1/speech", s.handleSpeech)

	s.handle("GET /api/v1/recorder", s.handleRecorderStatus)
	s.handle("POST /api/v1/recorder/{action}", s.handleRecorderAction)
	s.handle("POST /api/v1/recorder/chunk", s.handleRecorderChunk)
	s.handle("POST /api/v1/recorder/translate", s.handleRecorderTranslate)
	s.handle("GET /api/v1/recorder/stream", s.handleRecorderStream)

	s.handle("POST /api/v1/youtube", s.handleYouTube)
	s.handle("POST /api/v1/documents", s.handleDocument)
	s.handle("DELETE /api/v1/documents", s.handleClearDocument)
	s.handle("POST /api/v1/documents/ask", s.handleAsk)
	s.handle("GET /api/v1/documents/chat", s.handleChat)
	s.handle("POST /api/v1/words", s.handleWords)

	s.handle("GET /api/v1/tutor/languages", s.handleTutorLanguages)
	s.handle("GET /api/v1/tutor/lesson", s.handleLesson)
	s.handle("GET /api/v1/tutor/phrases", s.handlePhrases)
	s.handle("GET /api/v1/tutor/vocabulary", s.handleVocabulary)
	s.handle("POST /api/v1/tutor/vocabulary", s.handleLearnVocabulary)
	s.handle("POST /api/v1/tutor/practice", s.handlePractice)
	s.handle("GET /api/v1/tutor/pronunciation", s.handlePronunciation)
	s.handle("POST /api/v1/tutor/translate", s.handleTutorTranslate)
	s.handle("GET /api/v1/tutor/quiz", s.handleQuiz)
	s.handle("POST /api/v1/tutor/quiz", s.handleStartQuiz)
	s.handle("POST /api/v1/tutor/quiz/answer", s.handleAnswerQuiz)
	s.handle("POST /api/v1/tutor/quiz/end", s.handleEndQuiz)
	s.handle("GET /api/v1/tutor/exercises", s.handleExercises)
	s.handle("POST /api/v1/tutor/exercise", s.handleCheckExercise)
	s.handle("POST /api/v1/tutor/flashcards", s.handleFlashcards)
}

// Handler is the full middleware stack around the routes.
func (s *Server) Handler() http.Handler {
	return Chain(s.mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		SessionCookie(s.cfg.Session.Cookie, cfg.DurSeconds(s.cfg.Session.TTL), false),
	)
}

// Run serves on the configured address until ctx is cancelled, then drains
// in-flight requests for up to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       cfg.DurSeconds(s.cfg.Server.ReadTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.DurSeconds(s.cfg.Server.WriteTimeout),
		IdleTimeout:       cfg.DurSeconds(s.cfg.Server.IdleTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.DurSeconds(s.cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.ok(w, r, map[string]string{
		"status":  "healthy",
		"version": s.cfg.App.Version,
	})
}

type lockRef struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serialises updates per session id.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*lockRef
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &lockRef{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

// state loads the caller's session, starting a new one when the store has
// none. The result is a copy; changes need update to stick.
func (s *Server) state(r *http.Request) (*session.State, error) {
	id := SessionIDFromContext(r.Context())
	if id == "" {
		return nil, errors.New("missing session id")
	}
	st, err := s.store.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(id), nil
	}
	if err != nil {
		s.log.WithError(err).WithField("session", id).Warn("session unreadable, starting fresh")
		return session.New(id), nil
	}
	return st, nil
}

// update runs fn on a freshly loaded session under the session lock and
// saves the result when fn succeeds. Slow work belongs outside fn.
func (s *Server) update(r *http.Request, fn func(st *session.State) error) (*session.State, error) {
	unlock := s.locks.lock(SessionIDFromContext(r.Context()))
	defer unlock()
	st, err := s.state(r)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.store.Save(r.Context(), st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return st, nil
}
