// Package clients talks to the external services Voice Vision fronts:
// speech recognition, translation, text-to-speech, video metadata and
// captions, hosted text generation, thesaurus and encyclopedia lookups.
package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	ServiceASR        = "asr"
	ServiceTranslate  = "translate"
	ServiceTTS        = "tts"
	ServiceYouTube    = "youtube"
	ServiceTranscript = "transcript"
	ServiceQA         = "qa"
	ServiceThesaurus  = "thesaurus"
	ServiceWikipedia  = "wikipedia"
	ServiceDownload   = "download"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNoCaptions = errors.New("no captions available")
	// ErrUpstream marks failures of the remote service itself: transport
	// errors and non-success replies.
	ErrUpstream = errors.New("upstream failure")
)

// Observer receives one call per upstream request.
type Observer interface {
	ObserveUpstream(service string, d time.Duration, err error)
}

type HTTP struct {
	c   *http.Client
	log *logrus.Entry
	obs Observer

	mu       sync.RWMutex
	perSvc   map[string]*http.Client
	limiters map[string]*rate.Limiter
}

type Option func(*HTTP)

func WithLogger(l *logrus.Logger) Option {
	return func(h *HTTP) { h.log = l.WithField("component", "clients") }
}

func WithObserver(o Observer) Option {
	return func(h *HTTP) { h.obs = o }
}

// WithService sets a dedicated timeout and an optional request rate for one
// service. ratePerSec <= 0 leaves the service unthrottled.
func WithService(name string, timeout time.Duration, ratePerSec float64) Option {
	return func(h *HTTP) {
		if timeout > 0 {
			h.perSvc[name] = &http.Client{Timeout: timeout, Transport: h.c.Transport}
		}
		if ratePerSec > 0 {
			burst := int(ratePerSec)
			if burst < 1 {
				burst = 1
			}
			h.limiters[name] = rate.NewLimiter(rate.Limit(ratePerSec), burst)
		}
	}
}

func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		c:        &http.Client{Timeout: 60 * time.Second},
		perSvc:   map[string]*http.Client{},
		limiters: map[string]*rate.Limiter{},
	}
	h.log = logrus.NewEntry(logrus.StandardLogger()).WithField("component", "clients")
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *HTTP) client(service string) *http.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.perSvc[service]; ok {
		return c
	}
	return h.c
}

// send waits for the service rate limiter, performs the request and reports
// it to the observer. Non-2xx replies are reported as failures but still
// returned so callers can read the body.
func (h *HTTP) send(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	h.mu.RLock()
	lim := h.limiters[service]
	h.mu.RUnlock()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", service, err)
		}
	}

	start := time.Now()
	resp, err := h.client(service).Do(req)
	d := time.Since(start)

	var obsErr error
	switch {
	case err != nil:
		obsErr = err
	case resp.StatusCode >= 300:
		obsErr = fmt.Errorf("status %d", resp.StatusCode)
	}
	if h.obs != nil {
		h.obs.ObserveUpstream(service, d, obsErr)
	}
	h.log.WithFields(logrus.Fields{
		"service":  service,
		"method":   req.Method,
		"duration": d.String(),
		"failed":   obsErr != nil,
	}).Debug("upstream call")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", service, ErrUpstream, err)
	}
	return resp, nil
}

// StatusError is a non-success reply, printed as "<service> <status>: <body>".
type StatusError struct {
	Service string
	Code    int
	Status  string
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Service, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

func statusError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Service: service, Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
}
