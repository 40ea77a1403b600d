package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicevision/voicevision/audio"
)

const keywordCount = 5

// Transcribe recognises the speech in the audio file at src and runs the
// analyses selected in opts. Optional analyses never fail the call: a
// failed speaker count or gender estimate reads "Detection failed" and
// adds a warning.
func (p *Pipeline) Transcribe(ctx context.Context, src string, opts Options) (t *Transcription, err error) {
	defer func() { p.record("transcribe", err) }()
	start := time.Now()

	wavPath, converted, err := p.prepareWAV(ctx, src)
	if err != nil {
		return nil, err
	}
	if converted {
		defer p.cleanup(wavPath)
	}

	asr, err := p.http.ASR(ctx, p.cfg.Services.ASR.URL, wavPath, speechCode(opts.Language))
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	segs := make([]Segment, 0, len(asr.Segments))
	for _, s := range asr.Segments {
		segs = append(segs, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	t = &Transcription{
		Text:        strings.TrimSpace(asr.Text),
		Language:    SpeechLanguageName(asr.Language),
		Segments:    segs,
		Timestamped: TimestampedTranscript(segs),
	}

	var sig *audio.Signal
	var sigErr error
	if opts.Speakers || opts.Gender || opts.Visualize {
		sig, sigErr = audio.Load(wavPath)
	}

	analysis := map[string]any{}
	if opts.Speakers {
		n, err := p.countSpeakers(sig, sigErr, segs)
		if err != nil {
			t.Warnings = append(t.Warnings, fmt.Sprintf("Could not detect number of speakers: %v", err))
			analysis[AnalysisSpeakers] = DetectionFailed
		} else {
			analysis[AnalysisSpeakers] = n
		}
	}
	if opts.Gender {
		if sigErr != nil {
			t.Warnings = append(t.Warnings, fmt.Sprintf("Could not detect gender: %v", sigErr))
			analysis[AnalysisGender] = DetectionFailed
		} else {
			g, _ := audio.EstimateGender(sig)
			analysis[AnalysisGender] = string(g)
		}
	}
	if len(analysis) > 0 {
		t.Analysis = analysis
	}
	if opts.Speakers || opts.Gender {
		t.Stats = SpeechStats(segs)
	}
	if opts.Keywords {
		t.Keywords = Keywords(t.Text, keywordCount)
	}
	if opts.Visualize {
		if sigErr != nil {
			t.Warnings = append(t.Warnings, fmt.Sprintf("Could not generate visualization: %v", sigErr))
		} else {
			t.Visualization = audio.Visualize(sig, 800, 128, 400)
		}
	}

	for _, w := range t.Warnings {
		p.log.WithField("source", src).Warn(w)
	}
	t.ProcessingTime = time.Since(start).Seconds()
	p.log.WithFields(logrus.Fields{
		"language": t.Language,
		"segments": len(segs),
		"took":     time.Since(start).String(),
	}).Info("transcription complete")
	return t, nil
}

func (p *Pipeline) countSpeakers(sig *audio.Signal, sigErr error, segs []Segment) (int, error) {
	if sigErr != nil {
		return 0, sigErr
	}
	spans := make([]audio.Span, len(segs))
	for i, s := range segs {
		spans[i] = audio.Span{Start: s.Start, End: s.End}
	}
	return audio.CountSpeakers(sig, spans, p.cfg.Audio.MaxSpeakers, p.cfg.Audio.NMFCC)
}

// prepareWAV returns a mono WAV version of src, converting with ffmpeg when
// the input is not already PCM WAV. The source sample rate is kept so the
// local analyses see the audio as recorded. converted reports a new temp
// file.
func (p *Pipeline) prepareWAV(ctx context.Context, src string) (string, bool, error) {
	if audio.IsWAV(src) {
		return src, false, nil
	}
	out, err := p.tempPath("vv-*.wav")
	if err != nil {
		return "", false, err
	}
	if err := p.conv.ToWAV(ctx, src, out, 0, 1); err != nil {
		p.cleanup(out)
		return "", false, fmt.Errorf("convert %s: %w", src, err)
	}
	return out, true, nil
}

// TranscribeURL downloads an online audio file and transcribes it.
func (p *Pipeline) TranscribeURL(ctx context.Context, rawURL string, opts Options) (*Transcription, error) {
	local, err := p.FetchAudio(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer p.cleanup(local)

	t, err := p.Transcribe(ctx, local, opts)
	if err != nil {
		return nil, err
	}
	t.Source = rawURL
	return t, nil
}

// FetchAudio downloads rawURL into a temp file that keeps the URL's
// extension and returns its path. The caller removes the file.
func (p *Pipeline) FetchAudio(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 {
		ext = ".audio"
	}

	f, err := p.tempFile("vv-fetch-*" + ext)
	if err != nil {
		return "", err
	}
	limit := p.cfg.Server.MaxUploadMB << 20
	_, err = p.http.Download(ctx, u.String(), f, limit)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.cleanup(f.Name())
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	return f.Name(), nil
}
