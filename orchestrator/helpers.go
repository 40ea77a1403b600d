package orchestrator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatClock renders seconds as MM:SS; minutes are not capped at 59.
func FormatClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	m := int(sec / 60)
	s := int(math.Mod(sec, 60))
	return fmt.Sprintf("%02d:%02d", m, s)
}

// TimestampedTranscript renders "[MM:SS - MM:SS] text" blocks separated by
// blank lines.
func TimestampedTranscript(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		fmt.Fprintf(&b, "[%s - %s] %s\n\n", FormatClock(s.Start), FormatClock(s.End), strings.TrimSpace(s.Text))
	}
	return b.String()
}

// SpeechStats summarises segment timing. No segments gives nil.
func SpeechStats(segs []Segment) *Stats {
	if len(segs) == 0 {
		return nil
	}
	total := segs[len(segs)-1].End
	speech := 0.0
	words := 0
	for _, s := range segs {
		speech += s.End - s.Start
		words += len(strings.Fields(s.Text))
	}
	wpm := 0
	if speech > 0 {
		wpm = int(math.RoundToEven(float64(words) / (speech / 60)))
	}
	return &Stats{
		TotalDuration:  FormatClock(total) + " (MM:SS)",
		SpeechDuration: FormatClock(speech) + " (MM:SS)",
		Words:          words,
		WordsPerMinute: wpm,
		Segments:       len(segs),
	}
}

var keywordStopWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true,
	"our": true, "ours": true, "ourselves": true, "you": true,
}

// Keywords returns the n most frequent lowercase words longer than three
// characters, skipping a few pronouns. Ties keep first-occurrence order.
func Keywords(text string, n int) []Keyword {
	counts := map[string]int{}
	var order []string
	for _, w := range wordTokens(strings.ToLower(text)) {
		if keywordStopWords[w] || utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	out := make([]Keyword, 0, len(order))
	for _, w := range order {
		out = append(out, Keyword{Word: w, Count: counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// wordTokens splits text into runs of letters, digits and underscores.
func wordTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r))
	})
}
