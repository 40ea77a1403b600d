package session

import (
	"errors"
	"fmt"
	"time"
)

type RecorderState string

const (
	Idle      RecorderState = "idle"
	Recording RecorderState = "recording"
	Paused    RecorderState = "paused"
	Stopped   RecorderState = "stopped"
)

const (
	StopManual = "manual"
	StopAuto   = "auto"
)

const (
	minSilenceTimeout     = 2
	maxSilenceTimeout     = 30
	DefaultSilenceTimeout = 5
	// manualLimit caps recordings without auto-completion.
	manualLimit = 120 * time.Second
)

var (
	ErrInvalidTransition = errors.New("invalid recorder transition")
	ErrNoRecording       = errors.New("no recording captured")
)

// Recorder tracks a browser microphone capture. Elapsed only grows while
// recording, so pauses do not count against the limit.
type Recorder struct {
	State     RecorderState `json:"state"`
	AutoStop  bool          `json:"auto_stop"`
	Timeout   int           `json:"timeout"`
	Audio     []byte        `json:"audio,omitempty"`
	MimeType  string        `json:"mime_type,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	ResumedAt time.Time     `json:"resumed_at"`
	StopCause string        `json:"stop_cause,omitempty"`
}

func clampTimeout(t int) int {
	switch {
	case t == 0:
		return DefaultSilenceTimeout
	case t < minSilenceTimeout:
		return minSilenceTimeout
	case t > maxSilenceTimeout:
		return maxSilenceTimeout
	}
	return t
}

// Limit is the longest a single recording may run.
func (r *Recorder) Limit() time.Duration {
	if !r.AutoStop {
		return manualLimit
	}
	return time.Duration(2*clampTimeout(r.Timeout)) * time.Second
}

func (r *Recorder) state() RecorderState {
	if r.State == "" {
		return Idle
	}
	return r.State
}

func (r *Recorder) invalid(op string) error {
	return fmt.Errorf("%s while %s: %w", op, r.state(), ErrInvalidTransition)
}

// Start begins a fresh capture and drops any previous audio.
func (r *Recorder) Start(now time.Time, autoStop bool, timeout int) error {
	if r.state() == Recording {
		return r.invalid("start")
	}
	*r = Recorder{
		State:     Recording,
		AutoStop:  autoStop,
		Timeout:   clampTimeout(timeout),
		ResumedAt: now,
	}
	return nil
}

func (r *Recorder) Pause(now time.Time) error {
	if r.Tick(now) || r.state() != Recording {
		return r.invalid("pause")
	}
	r.Elapsed += now.Sub(r.ResumedAt)
	r.State = Paused
	return nil
}

func (r *Recorder) Resume(now time.Time) error {
	if r.state() != Paused {
		return r.invalid("resume")
	}
	r.State = Recording
	r.ResumedAt = now
	return nil
}

func (r *Recorder) Stop(now time.Time) error {
	if r.Tick(now) || (r.state() == Stopped && r.StopCause == StopAuto) {
		return nil
	}
	switch r.state() {
	case Recording:
		r.Elapsed += now.Sub(r.ResumedAt)
	case Paused:
	default:
		return r.invalid("stop")
	}
	r.State = Stopped
	r.StopCause = StopManual
	return nil
}

// Tick stops a recording that has run past its limit and reports whether it
// did so.
func (r *Recorder) Tick(now time.Time) bool {
	if r.state() != Recording {
		return false
	}
	if r.Elapsed+now.Sub(r.ResumedAt) < r.Limit() {
		return false
	}
	r.Elapsed = r.Limit()
	r.State = Stopped
	r.StopCause = StopAuto
	return true
}

// Append adds a captured chunk. Chunks are only taken while recording.
func (r *Recorder) Append(chunk []byte, mimeType string, now time.Time) error {
	if r.Tick(now) || r.state() != Recording {
		return r.invalid("append")
	}
	if r.MimeType == "" {
		r.MimeType = mimeType
	}
	r.Audio = append(r.Audio, chunk...)
	return nil
}

// Ready reports whether the capture can be sent for translation.
func (r *Recorder) Ready() error {
	if r.state() != Stopped {
		return r.invalid("translate")
	}
	if len(r.Audio) == 0 {
		return ErrNoRecording
	}
	return nil
}

type RecorderStatus struct {
	State     RecorderState `json:"state"`
	AutoStop  bool          `json:"auto_stop"`
	Timeout   int           `json:"timeout"`
	Bytes     int           `json:"bytes"`
	Elapsed   float64       `json:"elapsed"`
	Limit     float64       `json:"limit"`
	StopCause string        `json:"stop_cause,omitempty"`
	CanStart  bool          `json:"can_start"`
	CanPause  bool          `json:"can_pause"`
	CanResume bool          `json:"can_resume"`
	CanStop   bool          `json:"can_stop"`
	CanTrans  bool          `json:"can_translate"`
}

// Status is the view the page renders buttons from.
func (r *Recorder) Status(now time.Time) RecorderStatus {
	r.Tick(now)
	st := r.state()
	el := r.Elapsed
	if st == Recording {
		el += now.Sub(r.ResumedAt)
	}
	return RecorderStatus{
		State:     st,
		AutoStop:  r.AutoStop,
		Timeout:   r.Timeout,
		Bytes:     len(r.Audio),
		Elapsed:   el.Seconds(),
		Limit:     r.Limit().Seconds(),
		StopCause: r.StopCause,
		CanStart:  st != Recording,
		CanPause:  st == Recording,
		CanResume: st == Paused,
		CanStop:   st == Recording || st == Paused,
		CanTrans:  r.Ready() == nil,
	}
}
