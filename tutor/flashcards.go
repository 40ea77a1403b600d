package tutor

import (
	"context"
	"errors"
	"fmt"
)

const (
	FlashNext = "next"
	FlashPrev = "prev"
	FlashFlip = "flip"
)

var ErrUnknownAction = errors.New("unknown flashcard action")

// Deck is a flashcard run over one vocabulary category.
type Deck struct {
	Language string `json:"language"`
	Category string `json:"category"`
	Cards    []Pair `json:"cards"`
	Index    int    `json:"index"`
	Flipped  bool   `json:"flipped"`
}

// Face is what the current card shows and the language to read it in.
type Face struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Flipped bool   `json:"flipped"`
	HasPrev bool   `json:"has_prev"`
	HasNext bool   `json:"has_next"`
}

// NewDeck translates a category once and starts on its first card.
func (t *Tutor) NewDeck(ctx context.Context, code, category string) (*Deck, error) {
	cards, err := t.VocabularyList(ctx, code, category)
	if err != nil {
		return nil, err
	}
	return &Deck{Language: code, Category: category, Cards: cards}, nil
}

func (d *Deck) Next() {
	if d.Index < len(d.Cards)-1 {
		d.Index++
		d.Flipped = false
	}
}

func (d *Deck) Prev() {
	if d.Index > 0 {
		d.Index--
		d.Flipped = false
	}
}

func (d *Deck) Flip() { d.Flipped = !d.Flipped }

// Apply runs a named move.
func (d *Deck) Apply(action string) error {
	switch action {
	case FlashNext:
		d.Next()
	case FlashPrev:
		d.Prev()
	case FlashFlip:
		d.Flip()
	default:
		return fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}
	return nil
}

func (d *Deck) Current() Face {
	f := Face{Index: d.Index, Total: len(d.Cards), Flipped: d.Flipped}
	if len(d.Cards) == 0 {
		return f
	}
	c := d.Cards[d.Index]
	if d.Flipped {
		f.Text, f.Lang = c.Translated, d.Language
	} else {
		f.Text, f.Lang = c.English, "en"
	}
	f.HasPrev = d.Index > 0
	f.HasNext = d.Index < len(d.Cards)-1
	return f
}
