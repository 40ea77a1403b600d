// Package tutor serves the language learning features: lessons built from a
// static English catalog, translated on demand, plus quizzes, grammar
// exercises and flashcards that feed the progress store.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/voicevision/voicevision/clients"
	cfg "github.com/voicevision/voicevision/config"
	"github.com/voicevision/voicevision/progress"
)

const (
	TranslationFailed = "⚠️ Translation failed."
	NoLanguageInfo    = "❗Sorry, no detailed information found for this language on Wikipedia."
)

// infoSentences is the length of the encyclopedia intro.
const infoSentences = 4

var (
	ErrUnknownLanguage = errors.New("unknown learning language")
	ErrUnknownCategory = errors.New("unknown vocabulary category")
	ErrUnknownExercise = errors.New("unknown exercise")
)

// Translator translates English text into the language with code target.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Encyclopedia returns the first sentences of a page.
type Encyclopedia interface {
	Summary(ctx context.Context, title string, sentences int) (string, error)
}

// Services adapts the HTTP clients to Translator and Encyclopedia.
type Services struct {
	http *clients.HTTP
	cfg  *cfg.Root
}

func NewServices(h *clients.HTTP, c *cfg.Root) *Services {
	return &Services{http: h, cfg: c}
}

func (s *Services) Translate(ctx context.Context, text, target string) (string, error) {
	svc := s.cfg.Services.Translate
	return s.http.Translate(ctx, svc.URL, svc.Token, text, "en", target)
}

func (s *Services) Summary(ctx context.Context, title string, sentences int) (string, error) {
	return s.http.Summary(ctx, s.cfg.Services.Wikipedia.URL, title, sentences)
}

type Tutor struct {
	tr    Translator
	wiki  Encyclopedia
	store *progress.Store
	log   *logrus.Entry

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Tutor)

func WithLogger(l *logrus.Logger) Option {
	return func(t *Tutor) { t.log = l.WithField("component", "tutor") }
}

// WithSeed fixes the quiz randomness.
func WithSeed(seed int64) Option {
	return func(t *Tutor) { t.rng = rand.New(rand.NewSource(seed)) }
}

func New(tr Translator, wiki Encyclopedia, store *progress.Store, opts ...Option) *Tutor {
	t := &Tutor{
		tr:    tr,
		wiki:  wiki,
		store: store,
		log:   logrus.StandardLogger().WithField("component", "tutor"),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tutor) Progress() *progress.Store { return t.store }

func checkLanguage(code string) (string, error) {
	name, ok := LanguageName(code)
	if !ok {
		return "", fmt.Errorf("%q: %w", code, ErrUnknownLanguage)
	}
	return name, nil
}

// translate degrades to a placeholder so a single failure does not blank a
// whole lesson.
func (t *Tutor) translate(ctx context.Context, text, code string) string {
	out, err := t.tr.Translate(ctx, text, code)
	if err != nil {
		t.log.WithError(err).WithField("lang", code).Warn("translation failed")
		return TranslationFailed
	}
	return out
}

// translateAll translates texts concurrently, keeping order.
func (t *Tutor) translateAll(ctx context.Context, texts []string, code string) []string {
	out := make([]string, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, s := range texts {
		g.Go(func() error {
			out[i] = t.translate(gctx, s, code)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (t *Tutor) record(user, code, activity string, score *float64) {
	if t.store == nil || strings.TrimSpace(user) == "" {
		return
	}
	if _, err := t.store.Save(user, code, activity, score); err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{"user": user, "activity": activity}).Error("save progress")
	}
}

// LanguageInfo returns a short encyclopedia introduction to the language
// called name, trying a few page titles in turn.
func (t *Tutor) LanguageInfo(ctx context.Context, name string) string {
	for _, title := range []string{name + " language", name + " alphabet", name + " script", name} {
		s, err := t.wiki.Summary(ctx, title, infoSentences)
		if err == nil && s != "" {
			return s
		}
		if ctx.Err() != nil {
			break
		}
	}
	return NoLanguageInfo
}

// Pair is an English text with its translation.
type Pair struct {
	English    string `json:"english"`
	Translated string `json:"translated"`
}

func pairs(en, tr []string) []Pair {
	out := make([]Pair, len(en))
	for i := range en {
		out[i] = Pair{English: en[i], Translated: tr[i]}
	}
	return out
}

// Translate renders one learner sentence.
func (t *Tutor) Translate(ctx context.Context, code, text string) (Pair, error) {
	if _, err := checkLanguage(code); err != nil {
		return Pair{}, err
	}
	return Pair{English: text, Translated: t.translate(ctx, text, code)}, nil
}

func (t *Tutor) PhraseList(ctx context.Context, code, level string) ([]Pair, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	en := Phrases(level)
	return pairs(en, t.translateAll(ctx, en, code)), nil
}

func (t *Tutor) VocabularyList(ctx context.Context, code, category string) ([]Pair, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	en := Vocabulary(category)
	if len(en) == 0 {
		return nil, fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	return pairs(en, t.translateAll(ctx, en, code)), nil
}

// LearnVocabulary marks a category as learned and returns its word count.
func (t *Tutor) LearnVocabulary(user, code, category string) (int, error) {
	if _, err := checkLanguage(code); err != nil {
		return 0, err
	}
	words := Vocabulary(category)
	if len(words) == 0 {
		return 0, fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	t.record(user, code, progress.ActivityVocabulary, nil)
	return len(words), nil
}

type ConversationLine struct {
	Role       string `json:"role"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// Practice translates the sample conversation for level and counts a
// practice session.
func (t *Tutor) Practice(ctx context.Context, user, code, level string) ([]ConversationLine, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	convo, ok := conversations[level]
	if !ok {
		convo = conversations[LevelBeginner]
	}
	en := make([]string, len(convo))
	for i, l := range convo {
		en[i] = l.text
	}
	tr := t.translateAll(ctx, en, code)
	out := make([]ConversationLine, len(convo))
	for i, l := range convo {
		out[i] = ConversationLine{Role: l.role, Original: l.text, Translated: tr[i]}
	}
	t.record(user, code, progress.ActivityPractice, nil)
	return out, nil
}

// WordDrill returns the first words of a category for pronunciation.
func (t *Tutor) WordDrill(ctx context.Context, code, category string) ([]Pair, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	en := Vocabulary(category)
	if len(en) == 0 {
		return nil, fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	if len(en) > wordDrillSize {
		en = en[:wordDrillSize]
	}
	return pairs(en, t.translateAll(ctx, en, code)), nil
}

// Lesson is the overview shown when a language is picked.
type Lesson struct {
	Language          Language            `json:"language"`
	Info              string              `json:"info"`
	Path              map[string][]string `json:"path"`
	GrammarRules      []string            `json:"grammar_rules"`
	PronunciationTips []string            `json:"pronunciation_tips"`
}

func (t *Tutor) Lesson(ctx context.Context, code string) (*Lesson, error) {
	name, err := checkLanguage(code)
	if err != nil {
		return nil, err
	}
	return &Lesson{
		Language:          Language{Code: code, Name: name},
		Info:              t.LanguageInfo(ctx, name),
		Path:              LearningPath(name),
		GrammarRules:      GrammarRules(code),
		PronunciationTips: PronunciationTips(code),
	}, nil
}

// Report returns the progress report for user, or nil when nothing was
// recorded yet.
func (t *Tutor) Report(user, code, level string) (*progress.Report, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	p, err := t.store.Get(user, code)
	if err != nil || p == nil {
		return nil, err
	}
	return progress.BuildReport(p, level), nil
}
