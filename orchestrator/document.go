package orchestrator

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/voicevision/voicevision/audio"
)

const (
	KindPDF   = "PDF"
	KindText  = "Text"
	KindAudio = "Audio"
	KindVideo = "Video"
)

var kindByExt = map[string]string{
	".pdf": KindPDF, ".txt": KindText,
	".wav": KindAudio, ".mp3": KindAudio, ".m4a": KindAudio, ".ogg": KindAudio, ".flac": KindAudio,
	".mp4": KindVideo, ".webm": KindVideo, ".mov": KindVideo, ".mkv": KindVideo, ".avi": KindVideo,
}

// DocumentKind classifies an upload by content type, falling back to the
// file extension when the type is missing or generic.
func DocumentKind(name, contentType string) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	switch {
	case err != nil || mt == "" || mt == "application/octet-stream":
		if kind, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
			return kind, nil
		}
	case mt == "application/pdf":
		return KindPDF, nil
	case mt == "text/plain":
		return KindText, nil
	case strings.Contains(mt, "audio"):
		return KindAudio, nil
	case strings.Contains(mt, "video"):
		return KindVideo, nil
	}
	return "", fmt.Errorf("%s (%s): %w", name, contentType, ErrUnsupportedMedia)
}

// Greeting is the first assistant message after a document is processed.
func (d *Document) Greeting() string {
	return fmt.Sprintf("✅ %s document processed successfully! Ask me anything about it.", d.Kind)
}

// IngestDocument extracts the text of an uploaded PDF, plain text, audio
// or video file. Audio must be mono 16-bit WAV; video has its audio track
// extracted first. Both are transcribed by the speech service.
func (p *Pipeline) IngestDocument(ctx context.Context, name, contentType string, r io.Reader) (d *Document, err error) {
	defer func() { p.record("document", err) }()
	kind, err := DocumentKind(name, contentType)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(name)
	if kind == KindAudio {
		ext = ".wav"
	}
	f, err := p.tempFile("vv-doc-*" + ext)
	if err != nil {
		return nil, err
	}
	defer p.cleanup(f.Name())
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = pdfText(f.Name())
	case KindText:
		text, err = plainText(f.Name())
	case KindAudio:
		text, err = p.transcribeMono(ctx, f.Name())
	case KindVideo:
		text, err = p.transcribeVideo(ctx, f.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", name, err)
	}
	p.log.WithField("kind", kind).WithField("chars", utf8.RuneCountInString(text)).Info("document processed")
	return &Document{Name: name, Kind: kind, Text: text}, nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func plainText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("text is not UTF-8: %w", ErrUnsupportedMedia)
	}
	return string(b), nil
}

func (p *Pipeline) transcribeMono(ctx context.Context, path string) (string, error) {
	if err := audio.CheckMono16(path); err != nil {
		return "", err
	}
	asr, err := p.http.ASR(ctx, p.cfg.Services.ASR.URL, path, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(asr.Text), nil
}

func (p *Pipeline) transcribeVideo(ctx context.Context, path string) (string, error) {
	wavPath, err := p.tempPath("vv-doc-*.wav")
	if err != nil {
		return "", err
	}
	defer p.cleanup(wavPath)
	if err := p.conv.ExtractAudio(ctx, path, wavPath, p.cfg.Audio.SampleRate); err != nil {
		return "", err
	}
	return p.transcribeMono(ctx, wavPath)
}

const assistantTag = "<|assistant|>"

// QAPrompt builds the chat prompt for the hosted assistant model.
func QAPrompt(docText, question string) string {
	return "<|system|>\n" +
		"You are a helpful AI assistant. Use the provided context to answer the question.\n" +
		"Context: " + docText + "\n" +
		"</s>\n" +
		"<|user|>\n" +
		question + "\n" +
		"</s>\n" +
		assistantTag + "\n"
}

// Ask answers question from the document text.
func (p *Pipeline) Ask(ctx context.Context, docText, question string) (answer string, err error) {
	defer func() { p.record("document_qa", err) }()
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyInput
	}
	qa := p.cfg.Services.QA
	out, err := p.http.Generate(ctx, qa.URL, qa.Token, QAPrompt(docText, question))
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	return answerText(out), nil
}

// answerText keeps what follows the last assistant tag, since the model
// echoes the prompt.
func answerText(generated string) string {
	if i := strings.LastIndex(generated, assistantTag); i >= 0 {
		generated = generated[i+len(assistantTag):]
	}
	return strings.TrimSpace(generated)
}
