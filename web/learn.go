package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/voicevision/voicevision/progress"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/tutor"
)

type userRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Username)
	st, err := s.update(r, func(st *session.State) error {
		st.Username = name
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, map[string]string{"username": st.Username})
}

type sessionView struct {
	Page      string                 `json:"page"`
	Username  string                 `json:"username"`
	Languages session.LanguagePair   `json:"languages"`
	History   int                    `json:"history"`
	Document  string                 `json:"document,omitempty"`
	Recorder  session.RecorderStatus `json:"recorder"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := sessionView{
		Page:      st.Page,
		Username:  st.Username,
		Languages: st.Languages,
		History:   len(st.History),
		Recorder:  st.Recorder.Status(s.now()),
	}
	if st.Document != nil {
		v.Document = st.Document.Name
	}
	s.ok(w, r, v)
}

type progressView struct {
	Report         *progress.Report `json:"report,omitempty"`
	GettingStarted []string         `json:"getting_started,omitempty"`
}

// handleProgress reports the signed-in user's progress in ?lang=, or the
// getting started tips when nothing was recorded.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if st.Username == "" {
		s.fail(w, r, fmt.Errorf("set a username first: %w", progress.ErrNoUser))
		return
	}
	q := r.URL.Query()
	level := q.Get("level")
	if level == "" {
		level = tutor.LevelBeginner
	}
	rep, err := s.tutor.Report(st.Username, q.Get("lang"), level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rep == nil {
		s.ok(w, r, progressView{GettingStarted: progress.GettingStarted})
		return
	}
	s.ok(w, r, progressView{Report: rep})
}

func (s *Server) handleTutorLanguages(w http.ResponseWriter, r *http.Request) {
	s.ok(w, r, map[string]any{
		"languages":  tutor.Languages(),
		"levels":     tutor.Levels,
		"categories": tutor.Categories,
	})
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.tutor.Lesson(r.Context(), r.URL.Query().Get("lang"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, l)
}

func (s *Server) handlePhrases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := q.Get("level")
	if level == "" {
		level = tutor.LevelBeginner
	}
	p, err := s.tutor.PhraseList(r.Context(), q.Get("lang"), level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, p)
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := s.tutor.VocabularyList(r.Context(), q.Get("lang"), q.Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, v)
}

type lessonRequest struct {
	Lang     string `json:"lang"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

// handleLearnVocabulary marks a category as learned for the user.
func (s *Server) handleLearnVocabulary(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.tutor.LearnVocabulary(st.Username, req.Lang, req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"category": req.Category, "words": n, "tracked": st.Username != ""})
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lines, err := s.tutor.Practice(r.Context(), st.Username, req.Lang, req.Level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, lines)
}

type pronunciationView struct {
	Tips           []string     `json:"tips"`
	Words          []tutor.Pair `json:"words"`
	Sentences      []string     `json:"sentences"`
	TongueTwisters []string     `json:"tongue_twisters"`
}

func (s *Server) handlePronunciation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category == "" {
		category = tutor.Categories[0]
	}
	words, err := s.tutor.WordDrill(r.Context(), q.Get("lang"), category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, pronunciationView{
		Tips:           tutor.PronunciationTips(q.Get("lang")),
		Words:          words,
		Sentences:      tutor.SampleSentences,
		TongueTwisters: tutor.TongueTwisters,
	})
}

type tutorTranslateRequest struct {
	Lang string `json:"lang"`
	Text string `json:"text"`
}

func (s *Server) handleTutorTranslate(w http.ResponseWriter, r *http.Request) {
	var req tutorTranslateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(w, r, fmt.Errorf("text: %w", errBadRequest))
		return
	}
	p, err := s.tutor.Translate(r.Context(), req.Lang, req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, p)
}

type questionView struct {
	Prompt   string        `json:"question"`
	Options  []string      `json:"options"`
	Answered bool          `json:"answered"`
	Result   *tutor.Result `json:"result,omitempty"`
	Correct  *int          `json:"correct,omitempty"`
	English  string        `json:"english,omitempty"`
}

type quizView struct {
	Language  string         `json:"language"`
	Category  string         `json:"category"`
	Questions []questionView `json:"questions"`
	Answered  int            `json:"answered"`
	Score     int            `json:"score"`
	Percent   float64        `json:"percent"`
	Complete  bool           `json:"complete"`
}

// viewQuiz hides the answer of every question not yet answered.
func viewQuiz(q *tutor.Quiz) quizView {
	v := quizView{
		Language:  q.Language,
		Category:  q.Category,
		Questions: make([]questionView, len(q.Questions)),
		Answered:  q.Answered(),
		Score:     q.Score,
		Percent:   q.Percent(),
		Complete:  q.Complete(),
	}
	for i, qs := range q.Questions {
		qv := questionView{Prompt: qs.Prompt, Options: qs.Options}
		if i < len(q.Results) && q.Results[i] != nil {
			correct := qs.Correct
			qv.Answered = true
			qv.Result = q.Results[i]
			qv.Correct = &correct
			qv.English = qs.English
		}
		v.Questions[i] = qv
	}
	return v
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if st.Quiz == nil {
		s.fail(w, r, fmt.Errorf("no quiz running: %w", errNoState))
		return
	}
	s.ok(w, r, viewQuiz(st.Quiz))
}

type startQuizRequest struct {
	Lang      string `json:"lang"`
	Category  string `json:"category"`
	Questions int    `json:"questions,omitempty"`
}

// handleStartQuiz builds a new quiz. A quiz left unfinished is ended first
// so its partial score is kept.
func (s *Server) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Questions <= 0 {
		req.Questions = tutor.DefaultQuizLength
	}
	quiz, err := s.tutor.NewQuiz(r.Context(), req.Lang, req.Category, req.Questions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.update(r, func(st *session.State) error {
		s.tutor.EndQuiz(st.Username, st.Quiz)
		st.Quiz = quiz
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, viewQuiz(quiz))
}

type answerRequest struct {
	Question int `json:"question"`
	Choice   int `json:"choice"`
}

type answerView struct {
	Result   *tutor.Result `json:"result"`
	Correct  int           `json:"correct"`
	Answer   string        `json:"answer"`
	Complete bool          `json:"complete"`
	Score    int           `json:"score"`
	Percent  float64       `json:"percent"`
}

func (s *Server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var view answerView
	if _, err := s.update(r, func(st *session.State) error {
		if st.Quiz == nil {
			return fmt.Errorf("no quiz running: %w", errNoState)
		}
		res, err := s.tutor.AnswerQuiz(st.Username, st.Quiz, req.Question, req.Choice)
		if err != nil {
			return err
		}
		qs := st.Quiz.Questions[req.Question]
		view = answerView{
			Result:   res,
			Correct:  qs.Correct,
			Answer:   qs.Options[qs.Correct],
			Complete: st.Quiz.Complete(),
			Score:    st.Quiz.Score,
			Percent:  st.Quiz.Percent(),
		}
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, view)
}

// handleEndQuiz stops the running quiz, keeping a partial score.
func (s *Server) handleEndQuiz(w http.ResponseWriter, r *http.Request) {
	var view *quizView
	if _, err := s.update(r, func(st *session.State) error {
		if st.Quiz == nil {
			return fmt.Errorf("no quiz running: %w", errNoState)
		}
		s.tutor.EndQuiz(st.Username, st.Quiz)
		v := viewQuiz(st.Quiz)
		view = &v
		st.Quiz = nil
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, view)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("kind")
	if kind == "" {
		kind = tutor.ExerciseFill
	}
	items := tutor.Exercises(kind, q.Get("level"))
	if items == nil {
		s.fail(w, r, fmt.Errorf("kind %q: %w", kind, tutor.ErrUnknownExercise))
		return
	}
	s.ok(w, r, items)
}

type exerciseRequest struct {
	Lang   string `json:"lang"`
	Kind   string `json:"kind"`
	Level  string `json:"level"`
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

func (s *Server) handleCheckExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.tutor.CheckExercise(r.Context(), st.Username, req.Lang, req.Kind, req.Level, req.Index, req.Answer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, res)
}

type flashcardRequest struct {
	Action   string `json:"action"`
	Lang     string `json:"lang,omitempty"`
	Category string `json:"category,omitempty"`
}

type flashcardView struct {
	Active bool        `json:"active"`
	Face   *tutor.Face `json:"face,omitempty"`
}

// handleFlashcards starts, moves through, flips and exits a flashcard deck.
func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	var req flashcardRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var deck *tutor.Deck
	if req.Action == "start" {
		d, err := s.tutor.NewDeck(r.Context(), req.Lang, req.Category)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		deck = d
	}

	st, err := s.update(r, func(st *session.State) error {
		switch req.Action {
		case "start":
			st.Deck = deck
		case "exit":
			st.Deck = nil
		default:
			if st.Deck == nil {
				return fmt.Errorf("no flashcards running: %w", errNoState)
			}
			return st.Deck.Apply(req.Action)
		}
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if st.Deck == nil {
		s.ok(w, r, flashcardView{})
		return
	}
	face := st.Deck.Current()
	s.ok(w, r, flashcardView{Active: true, Face: &face})
}

// queryInt reads a non-negative integer query value, or def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
