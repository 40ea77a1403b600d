package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/voicevision/voicevision/clients"
)

const relatedMax = 5

var exampleTemplates = []string{
	"I felt %s when I received the good news yesterday.",
	"Her %s smile brightened up the entire room.",
	"The children were absolutely %s to see their grandparents after so long.",
	"We should try to remain %s even during difficult times.",
	"His inherently %s personality makes him popular among his colleagues.",
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// Examples returns three usage sentences for word.
func Examples(word string) []string {
	out := make([]string, 0, 3)
	for _, t := range exampleTemplates[:3] {
		out = append(out, Capitalize(fmt.Sprintf(t, word)))
	}
	return out
}

// ExploreWord looks up synonyms and antonyms concurrently and adds example
// sentences and a pronunciation clip. Lookup failures leave the list empty.
func (p *Pipeline) ExploreWord(ctx context.Context, word string) (r *WordReport, err error) {
	defer func() { p.record("words", err) }()
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, ErrEmptyInput
	}
	r = &WordReport{
		Word:     word,
		Display:  Capitalize(word),
		Synonyms: []string{},
		Antonyms: []string{},
		Examples: Examples(word),
	}

	base := p.cfg.Services.Thesaurus.URL
	g, gctx := errgroup.WithContext(ctx)
	lookup := func(rel string, dst *[]string) func() error {
		return func() error {
			words, err := p.http.Related(gctx, base, rel, word, relatedMax)
			if err != nil {
				p.log.WithError(err).WithField("rel", rel).Warn("thesaurus lookup failed")
				return nil
			}
			for _, w := range words {
				*dst = append(*dst, Capitalize(w))
			}
			return nil
		}
	}
	g.Go(lookup(clients.RelSynonym, &r.Synonyms))
	g.Go(lookup(clients.RelAntonym, &r.Antonyms))
	g.Go(func() error {
		mp3, err := p.http.Speak(gctx, p.cfg.Services.TTS.URL, word, "en")
		if err != nil {
			p.log.WithError(err).Debug("pronunciation audio failed")
			return nil
		}
		r.Audio = mp3
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}
