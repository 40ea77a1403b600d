// Package progress keeps per-user, per-language learning records as JSON
// files on disk.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const TimeLayout = "2006-01-02 15:04:05"

const (
	ActivityVocabulary = "vocabulary"
	ActivityQuiz       = "quiz"
	ActivityPractice   = "practice"
	ActivityExercise   = "exercise"
)

// wordsPerVocabulary is credited for every vocabulary activity.
const wordsPerVocabulary = 5

var ErrNoUser = errors.New("username is required")

type Activity struct {
	Activity  string `json:"activity"`
	Timestamp string `json:"timestamp"`
}

type Score struct {
	Score     float64 `json:"score"`
	Timestamp string  `json:"timestamp"`
}

type Stats struct {
	WordsLearned       int    `json:"words_learned"`
	ExercisesCompleted int    `json:"exercises_completed"`
	PracticeSessions   int    `json:"practice_sessions"`
	LastActive         string `json:"last_active"`
}

type Progress struct {
	Activities []Activity         `json:"activities"`
	Scores     map[string][]Score `json:"scores"`
	Stats      Stats              `json:"stats"`
}

func empty() *Progress {
	return &Progress{Activities: []Activity{}, Scores: map[string][]Score{}}
}

// Store reads and writes progress files under a directory. Writes to the
// same file are serialised.
type Store struct {
	dir string
	log *logrus.Entry
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Store)

func WithLogger(l *logrus.Logger) Option {
	return func(s *Store) { s.log = l.WithField("component", "progress") }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:   dir,
		log:   logrus.StandardLogger().WithField("component", "progress"),
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) lock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[path]
	if !ok {
		m = &sync.Mutex{}
		s.locks[path] = m
	}
	return m
}

// Path returns the file that holds progress for user in lang. Distinct
// (user, lang) pairs always map to distinct files.
func (s *Store) Path(user, lang string) (string, error) {
	u := escapeName(strings.TrimSpace(user))
	if u == "" {
		return "", ErrNoUser
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", u, escapeName(strings.TrimSpace(lang)))), nil
}

// escapeName keeps ASCII letters, digits, '-' and non-leading '.', and
// percent-encodes every other byte. '_' is always encoded so it only ever
// appears as the user/language separator.
func escapeName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		case c == '.' && i > 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// Save appends an activity, updates the counters and, when score is not nil,
// appends the score under the activity name. An unreadable file is replaced
// by a fresh record.
func (s *Store) Save(user, lang, activity string, score *float64) (*Progress, error) {
	path, err := s.Path(user, lang)
	if err != nil {
		return nil, err
	}
	m := s.lock(path)
	m.Lock()
	defer m.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("progress dir: %w", err)
	}

	p, err := read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("file", path).Warn("progress file unreadable, starting over")
		}
		p = empty()
	}

	ts := s.now().Format(TimeLayout)
	p.Activities = append(p.Activities, Activity{Activity: activity, Timestamp: ts})
	p.Stats.LastActive = ts
	switch activity {
	case ActivityVocabulary:
		p.Stats.WordsLearned += wordsPerVocabulary
	case ActivityExercise:
		p.Stats.ExercisesCompleted++
	case ActivityPractice:
		p.Stats.PracticeSessions++
	}
	if score != nil {
		p.Scores[activity] = append(p.Scores[activity], Score{Score: *score, Timestamp: ts})
	}

	if err := write(path, p); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": user, "lang": lang, "activity": activity}).Debug("progress saved")
	return p, nil
}

// Get returns the stored progress, or nil when there is none or the file
// cannot be decoded.
func (s *Store) Get(user, lang string) (*Progress, error) {
	path, err := s.Path(user, lang)
	if err != nil {
		return nil, err
	}
	m := s.lock(path)
	m.Lock()
	defer m.Unlock()

	p, err := read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("file", path).Warn("progress file unreadable")
		}
		return nil, nil
	}
	return p, nil
}

func read(path string) (*Progress, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := empty()
	if err := json.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if p.Activities == nil {
		p.Activities = []Activity{}
	}
	if p.Scores == nil {
		p.Scores = map[string][]Score{}
	}
	return p, nil
}

// write replaces path atomically.
func write(path string, p *Progress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".progress-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
