package tutor

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/voicevision/voicevision/progress"
)

const (
	DefaultQuizLength = 10
	distractors       = 3
)

var (
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNoQuestion      = errors.New("no such question")
	ErrNoChoice        = errors.New("no such option")
)

type Question struct {
	Prompt     string   `json:"question"`
	Options    []string `json:"options"`
	Correct    int      `json:"correct"`
	English    string   `json:"english"`
	Translated string   `json:"translated"`
}

type Result struct {
	Selected int  `json:"selected"`
	Correct  bool `json:"correct"`
}

// Quiz is a vocabulary quiz in progress. It is plain data so it can live in
// a session.
type Quiz struct {
	Language  string     `json:"language"`
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
	Results   []*Result  `json:"results"`
	Score     int        `json:"score"`
}

func (q *Quiz) Answered() int {
	n := 0
	for _, r := range q.Results {
		if r != nil {
			n++
		}
	}
	return n
}

func (q *Quiz) Complete() bool {
	return len(q.Questions) > 0 && q.Answered() == len(q.Questions)
}

// Answer grades choice for question i. Each question takes one answer.
func (q *Quiz) Answer(i, choice int) (*Result, error) {
	if i < 0 || i >= len(q.Questions) {
		return nil, fmt.Errorf("question %d: %w", i, ErrNoQuestion)
	}
	if len(q.Results) < len(q.Questions) {
		q.Results = append(q.Results, make([]*Result, len(q.Questions)-len(q.Results))...)
	}
	if q.Results[i] != nil {
		return nil, fmt.Errorf("question %d: %w", i, ErrAlreadyAnswered)
	}
	qs := q.Questions[i]
	if choice < 0 || choice >= len(qs.Options) {
		return nil, fmt.Errorf("option %d: %w", choice, ErrNoChoice)
	}
	// options may repeat the answer's text; any copy counts
	r := &Result{Selected: choice, Correct: qs.Options[choice] == qs.Translated}
	if r.Correct {
		q.Score++
	}
	q.Results[i] = r
	return r, nil
}

// Percent is the score over the answered questions, or over all of them once
// complete.
func (q *Quiz) Percent() float64 {
	n := q.Answered()
	if n == 0 {
		return 0
	}
	return float64(q.Score) / float64(n) * 100
}

// NewQuiz builds up to n questions from a vocabulary category. Each question
// offers the correct translation and three translated distractors.
func (t *Tutor) NewQuiz(ctx context.Context, code, category string, n int) (*Quiz, error) {
	name, err := checkLanguage(code)
	if err != nil {
		return nil, err
	}
	words := Vocabulary(category)
	if len(words) == 0 {
		return nil, fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	if n <= 0 {
		n = DefaultQuizLength
	}
	if n > len(words) {
		n = len(words)
	}

	type draft struct {
		word  string
		wrong []string
		perm  []int
	}
	drafts := make([]draft, n)
	t.mu.Lock()
	picks := t.rng.Perm(len(words))[:n]
	for qi, wi := range picks {
		word := words[wi]
		var others []string
		for _, w := range words {
			if w != word {
				others = append(others, w)
			}
		}
		d := draft{word: word}
		if len(others) >= distractors {
			for _, oi := range t.rng.Perm(len(others))[:distractors] {
				d.wrong = append(d.wrong, others[oi])
			}
		} else {
			for range distractors {
				d.wrong = append(d.wrong, fillerWords[t.rng.Intn(len(fillerWords))])
			}
		}
		d.perm = t.rng.Perm(distractors + 1)
		drafts[qi] = d
	}
	t.mu.Unlock()

	// translate each distinct word once
	uniq := map[string]string{}
	var todo []string
	for _, d := range drafts {
		for _, w := range append([]string{d.word}, d.wrong...) {
			if _, ok := uniq[w]; !ok {
				uniq[w] = ""
				todo = append(todo, w)
			}
		}
	}
	done := make([]string, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, w := range todo {
		g.Go(func() error {
			out, err := t.tr.Translate(gctx, w, code)
			if err != nil {
				return fmt.Errorf("translate %q: %w", w, err)
			}
			done[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, w := range todo {
		uniq[w] = done[i]
	}

	q := &Quiz{Language: code, Category: category, Results: make([]*Result, n)}
	for _, d := range drafts {
		src := []string{uniq[d.word]}
		for _, w := range d.wrong {
			src = append(src, uniq[w])
		}
		opts := make([]string, len(src))
		for to, from := range d.perm {
			opts[to] = src[from]
		}
		correct := slices.Index(opts, src[0])
		q.Questions = append(q.Questions, Question{
			Prompt:     fmt.Sprintf("What does '%s' mean in %s?", d.word, name),
			Options:    opts,
			Correct:    correct,
			English:    d.word,
			Translated: uniq[d.word],
		})
	}
	t.log.WithFields(logrus.Fields{"lang": code, "questions": n}).Debug("quiz ready")
	return q, nil
}

// AnswerQuiz grades an answer and stores the final score once every question
// has been answered.
func (t *Tutor) AnswerQuiz(user string, q *Quiz, i, choice int) (*Result, error) {
	r, err := q.Answer(i, choice)
	if err != nil {
		return nil, err
	}
	if q.Complete() {
		score := q.Percent()
		t.record(user, q.Language, progress.ActivityQuiz, &score)
	}
	return r, nil
}

// EndQuiz stores the partial score of an unfinished quiz with at least one
// answer. Finished quizzes were stored on their last answer.
func (t *Tutor) EndQuiz(user string, q *Quiz) {
	if q == nil || q.Complete() || q.Answered() == 0 {
		return
	}
	score := q.Percent()
	t.record(user, q.Language, progress.ActivityQuiz, &score)
}
