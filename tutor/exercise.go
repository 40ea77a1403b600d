package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicevision/voicevision/progress"
)

const gap = "___"

type ExerciseResult struct {
	Correct     bool   `json:"correct"`
	Expected    string `json:"expected"`
	Explanation string `json:"explanation,omitempty"`
	Sentence    string `json:"sentence"`
	Translated  string `json:"translated"`
}

// CheckExercise grades answer against grammar item index of kind at level,
// counts an exercise for user and translates the correct sentence.
func (t *Tutor) CheckExercise(ctx context.Context, user, code, kind, level string, index int, answer string) (*ExerciseResult, error) {
	if _, err := checkLanguage(code); err != nil {
		return nil, err
	}
	items := Exercises(kind, level)
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%s #%d: %w", kind, index, ErrUnknownExercise)
	}
	ex := items[index]

	res := &ExerciseResult{Expected: ex.Correct, Explanation: ex.Explanation}
	switch kind {
	case ExerciseFill:
		res.Correct = answer == ex.Correct
		res.Sentence = strings.Replace(ex.Sentence, gap, ex.Correct, 1)
	case ExerciseChoice:
		res.Correct = answer == ex.Correct
		res.Sentence = ex.Correct
	case ExerciseBuild:
		res.Correct = strings.EqualFold(strings.TrimSpace(answer), ex.Correct)
		res.Sentence = ex.Correct
	}
	res.Translated = t.translate(ctx, res.Sentence, code)

	t.record(user, code, progress.ActivityExercise, nil)
	return res, nil
}
