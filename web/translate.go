package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/session"
)

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	s.ok(w, r, orchestrator.Languages())
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

// handleTranslate translates text and adds it to the history. Missing
// languages fall back to the session's current selection.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Source == "" {
		req.Source = st.Languages.Source
	}
	if req.Target == "" {
		req.Target = st.Languages.Target
	}

	entry, err := s.pipe.TranslateText(r.Context(), req.Text, req.Source, req.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.update(r, func(st *session.State) error {
		st.Languages = session.LanguagePair{Source: req.Source, Target: req.Target}
		st.AddHistory(*entry)
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, entry)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	st, err := s.update(r, func(st *session.State) error {
		st.SwapLanguages()
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, st.Languages)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := st.SortedHistory()
	if h == nil {
		h = []orchestrator.HistoryEntry{}
	}
	s.ok(w, r, h)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.update(r, func(st *session.State) error {
		st.ClearHistory()
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, []orchestrator.HistoryEntry{})
}

// handleDownloadTranslation offers one translated text, indexed into the
// newest-first history.
func (s *Server) handleDownloadTranslation(w http.ResponseWriter, r *http.Request) {
	i := queryInt(r, "index", 0)
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := st.SortedHistory()
	if i < 0 || i >= len(h) {
		s.fail(w, r, fmt.Errorf("history entry %d: %w", i, errNoState))
		return
	}
	attachment(w, h[i].DownloadName(), "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h[i].TranslatedText))
}

// handleSpeech returns spoken audio for ?text= in ?lang=.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang := q.Get("lang")
	if lang == "" {
		lang = "en"
	}
	audio, err := s.pipe.Speak(r.Context(), q.Get("text"), lang)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	_, _ = w.Write(audio)
}

type recorderStart struct {
	AutoStop bool `json:"auto_stop"`
	Timeout  int  `json:"timeout"`
}

func (s *Server) handleRecorderStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.update(r, func(st *session.State) error {
		st.Recorder.Tick(s.now())
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, st.Recorder.Status(s.now()))
}

// handleRecorderAction drives the recorder state machine: start, pause,
// resume and stop.
func (s *Server) handleRecorderAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	var start recorderStart
	if action == "start" && r.ContentLength != 0 {
		if err := decode(w, r, &start); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	st, err := s.update(r, func(st *session.State) error {
		now := s.now()
		switch action {
		case "start":
			return st.Recorder.Start(now, start.AutoStop, start.Timeout)
		case "pause":
			return st.Recorder.Pause(now)
		case "resume":
			return st.Recorder.Resume(now)
		case "stop":
			return st.Recorder.Stop(now)
		}
		return fmt.Errorf("recorder action %q: %w", action, errBadRequest)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, st.Recorder.Status(s.now()))
}

// handleRecorderChunk appends a raw request body to the capture. The body's
// Content-Type is the recording mime type.
func (s *Server) handleRecorderChunk(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadMB<<20)
	chunk, err := io.ReadAll(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.appendChunk(r, chunk, r.Header.Get("Content-Type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, st.Recorder.Status(s.now()))
}

func (s *Server) appendChunk(r *http.Request, chunk []byte, mimeType string) (*session.State, error) {
	return s.update(r, func(st *session.State) error {
		if len(st.Recorder.Audio)+len(chunk) > int(s.cfg.Server.MaxUploadMB<<20) {
			return &http.MaxBytesError{Limit: s.cfg.Server.MaxUploadMB << 20}
		}
		return st.Recorder.Append(chunk, mimeType, s.now())
	})
}

// handleRecorderTranslate recognises the stopped recording in the source
// language and adds the translation to the history.
func (s *Server) handleRecorderTranslate(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st.Recorder.Tick(s.now())
	if err := st.Recorder.Ready(); err != nil {
		s.fail(w, r, err)
		return
	}

	path, err := s.spool(bytes.NewReader(st.Recorder.Audio), "recording"+recordingExt(st.Recorder.MimeType))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer s.removeTemp(path)

	res, err := s.pipe.TranslateRecording(r.Context(), path, st.Languages.Source, st.Languages.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.update(r, func(st *session.State) error {
		st.AddHistory(*res.Entry)
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, res)
}
