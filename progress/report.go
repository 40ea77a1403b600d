package progress

import (
	"fmt"
	"math"
	"sort"
)

var trackedActivities = []string{ActivityVocabulary, ActivityQuiz, ActivityPractice, ActivityExercise}

var suggestions = map[string]string{
	ActivityVocabulary: "📝 Focus on expanding your vocabulary. Try using the Vocabulary section with flashcards to memorize new words.",
	ActivityQuiz:       "🎮 Test your knowledge with more quizzes to reinforce what you've learned.",
	ActivityPractice:   "🎯 Practice more conversations to improve your fluency and practical language use.",
	ActivityExercise:   "✍️ Work on more grammar exercises to strengthen your understanding of language structure.",
}

var activityIcons = map[string]string{
	ActivityVocabulary: "🔤",
	ActivityQuiz:       "🎮",
	ActivityPractice:   "🎯",
	ActivityExercise:   "✍️",
}

// GettingStarted is shown when a user has no progress yet.
var GettingStarted = []string{
	"Begin with the Learn tab to understand basic information about your chosen language",
	"Practice common phrases and basic vocabulary in the Vocabulary tab",
	"Take quizzes regularly to test your knowledge",
	"Practice conversations to improve your fluency",
	"Set a regular study schedule - consistency is key!",
}

type RecentActivity struct {
	Icon      string `json:"icon"`
	Label     string `json:"label"`
	Timestamp string `json:"timestamp"`
}

type Milestone struct {
	Target    int     `json:"target"`
	Remaining int     `json:"remaining"`
	Fraction  float64 `json:"fraction"`
	Message   string  `json:"message"`
}

type Report struct {
	Stats          Stats            `json:"stats"`
	QuizScores     []Score          `json:"quiz_scores,omitempty"`
	AverageQuiz    *float64         `json:"average_quiz,omitempty"`
	Recent         []RecentActivity `json:"recent"`
	Counts         map[string]int   `json:"counts"`
	LeastPracticed string           `json:"least_practiced"`
	Suggestion     string           `json:"suggestion"`
	Milestone      *Milestone       `json:"milestone,omitempty"`
}

// BuildReport summarises p for a learner at level. p must not be nil.
func BuildReport(p *Progress, level string) *Report {
	r := &Report{Stats: p.Stats, Counts: map[string]int{}}

	if qs := p.Scores[ActivityQuiz]; len(qs) > 0 {
		r.QuizScores = qs
		sum := 0.0
		for _, q := range qs {
			sum += q.Score
		}
		avg := math.Round(sum/float64(len(qs))*10) / 10
		r.AverageQuiz = &avg
	}

	start := len(p.Activities) - 10
	if start < 0 {
		start = 0
	}
	for i := len(p.Activities) - 1; i >= start; i-- {
		a := p.Activities[i]
		icon, ok := activityIcons[a.Activity]
		if !ok {
			icon = "📚"
		}
		r.Recent = append(r.Recent, RecentActivity{Icon: icon, Label: capitalize(a.Activity), Timestamp: a.Timestamp})
	}

	for _, a := range trackedActivities {
		r.Counts[a] = 0
	}
	for _, a := range p.Activities {
		if _, ok := r.Counts[a.Activity]; ok {
			r.Counts[a.Activity]++
		}
	}
	order := append([]string(nil), trackedActivities...)
	sort.SliceStable(order, func(i, j int) bool { return r.Counts[order[i]] < r.Counts[order[j]] })
	r.LeastPracticed = order[0]
	r.Suggestion = suggestions[r.LeastPracticed]

	r.Milestone = milestone(level, p.Stats.WordsLearned)
	return r
}

func milestone(level string, words int) *Milestone {
	var target int
	var next string
	switch level {
	case "beginner":
		target, next = 500, "intermediate"
	case "intermediate":
		target, next = 2000, "advanced"
	default:
		return nil
	}
	m := &Milestone{Target: target, Remaining: target - words}
	if m.Remaining > 0 {
		m.Fraction = float64(words) / float64(target)
		m.Message = fmt.Sprintf("Learn %d more words to reach %s level", m.Remaining, next)
	} else {
		m.Remaining = 0
		m.Fraction = 1
		m.Message = fmt.Sprintf("Ready to advance to %s level!", next)
	}
	return m
}

// capitalize upper-cases the first byte and lower-cases the rest; activity
// names are ASCII.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	for i := range b {
		c := b[i]
		if i == 0 && c >= 'a' && c <= 'z' {
			b[i] = c - 32
		} else if i > 0 && c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
