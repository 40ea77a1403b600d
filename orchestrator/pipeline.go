// Package orchestrator runs the feature pipelines behind each page: it
// calls the external services through clients, does local audio analysis
// and shapes the results for display and download.
package orchestrator

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicevision/voicevision/audio"
	"github.com/voicevision/voicevision/clients"
	cfg "github.com/voicevision/voicevision/config"
)

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrUnknownLanguage  = errors.New("unknown language")
	ErrInvalidURL       = errors.New("invalid url")
	ErrUnsupportedMedia = errors.New("unsupported file type")
)

// Converter turns media files into PCM WAV. *audio.Converter is the ffmpeg
// backed implementation.
type Converter interface {
	ToWAV(ctx context.Context, in, out string, rate, channels int) error
	ExtractAudio(ctx context.Context, video, out string, rate int) error
}

// FeatureObserver counts feature uses.
type FeatureObserver interface {
	RecordFeature(feature string, err error)
}

type Pipeline struct {
	cfg  *cfg.Root
	http *clients.HTTP
	conv Converter
	log  *logrus.Entry
	obs  FeatureObserver
	now  func() time.Time
}

type Option func(*Pipeline)

func WithLogger(l *logrus.Logger) Option {
	return func(p *Pipeline) { p.log = l.WithField("component", "orchestrator") }
}

func WithFeatureObserver(o FeatureObserver) Option {
	return func(p *Pipeline) { p.obs = o }
}

func WithConverter(c Converter) Option {
	return func(p *Pipeline) { p.conv = c }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(c *cfg.Root, h *clients.HTTP, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:  c,
		http: h,
		conv: audio.NewConverter(c.Audio.FFmpeg),
		log:  logrus.NewEntry(logrus.StandardLogger()).WithField("component", "orchestrator"),
		now:  time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Config exposes the configuration the pipeline was built with.
func (p *Pipeline) Config() *cfg.Root { return p.cfg }

// Clients exposes the upstream client for packages that share it.
func (p *Pipeline) Clients() *clients.HTTP { return p.http }

func (p *Pipeline) record(feature string, err error) {
	if p.obs != nil {
		p.obs.RecordFeature(feature, err)
	}
}

func (p *Pipeline) tempFile(pattern string) (*os.File, error) {
	dir := p.cfg.Paths.Temp
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.CreateTemp(dir, pattern)
}

// tempPath reserves a temp file name and closes it so external tools can
// write to it.
func (p *Pipeline) tempPath(pattern string) (string, error) {
	f, err := p.tempFile(pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// cleanup removes temp files, logging failures at debug level only.
func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.WithError(err).WithField("path", path).Debug("temp cleanup failed")
		}
	}
}
