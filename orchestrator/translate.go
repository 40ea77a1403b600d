package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const historyTimeLayout = "2006-01-02 15:04:05"

var (
	ErrNotUnderstood = errors.New("could not understand audio")
	ErrNothingToPlay = fmt.Errorf("no text available to play: %w", ErrEmptyInput)
)

// SwapLanguages exchanges source and target selections.
func SwapLanguages(src, dst string) (string, string) {
	return dst, src
}

// TranslateText translates text between two translator languages given by
// display name and returns the history entry for it.
func (p *Pipeline) TranslateText(ctx context.Context, text, srcName, dstName string) (e *HistoryEntry, err error) {
	defer func() { p.record("translate", err) }()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	src, err := LanguageCode(srcName)
	if err != nil {
		return nil, err
	}
	dst, err := LanguageCode(dstName)
	if err != nil {
		return nil, err
	}

	out, err := p.http.Translate(ctx, p.cfg.Services.Translate.URL, p.cfg.Services.Translate.Token, text, src, dst)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return &HistoryEntry{
		Timestamp:      p.now().Format(historyTimeLayout),
		SourceLanguage: translatorLanguages[src],
		SourceText:     text,
		TargetLanguage: translatorLanguages[dst],
		TranslatedText: out,
	}, nil
}

type RecordingTranslation struct {
	Recognized string        `json:"recognized"`
	Entry      *HistoryEntry `json:"entry"`
}

// TranslateRecording recognises a microphone recording spoken in srcName
// and translates the text to dstName.
func (p *Pipeline) TranslateRecording(ctx context.Context, recording, srcName, dstName string) (*RecordingTranslation, error) {
	src, err := LanguageCode(srcName)
	if err != nil {
		return nil, err
	}
	if _, err := LanguageCode(dstName); err != nil {
		return nil, err
	}

	wavPath, converted, err := p.prepareWAV(ctx, recording)
	if err != nil {
		return nil, err
	}
	if converted {
		defer p.cleanup(wavPath)
	}

	asr, err := p.http.ASR(ctx, p.cfg.Services.ASR.URL, wavPath, speechCode(src))
	if err != nil {
		p.record("voice_translate", err)
		return nil, fmt.Errorf("recognise: %w", err)
	}
	heard := strings.TrimSpace(asr.Text)
	if heard == "" {
		p.record("voice_translate", ErrNotUnderstood)
		return nil, ErrNotUnderstood
	}

	e, err := p.TranslateText(ctx, heard, srcName, dstName)
	if err != nil {
		return nil, err
	}
	p.record("voice_translate", nil)
	return &RecordingTranslation{Recognized: heard, Entry: e}, nil
}

// Speak returns MP3 audio of text read in the language with code lang.
func (p *Pipeline) Speak(ctx context.Context, text, lang string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToPlay
	}
	b, err := p.http.Speak(ctx, p.cfg.Services.TTS.URL, text, lang)
	p.record("speech", err)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	return b, nil
}
