package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/session"
)

type transcribeResponse struct {
	Transcription *orchestrator.Transcription `json:"transcription"`
	SessionID     string                      `json:"session_id,omitempty"`
	OutputDir     string                      `json:"output_dir,omitempty"`
}

// handleTranscribe takes a multipart upload in "file" or an online audio
// link in "url". Setting "persist" to an export format also writes the
// result under the outputs directory.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	opts := orchestrator.Options{
		Speakers:  formBool(r, "speakers"),
		Gender:    formBool(r, "gender"),
		Keywords:  formBool(r, "keywords"),
		Visualize: formBool(r, "visualize"),
		Language:  strings.TrimSpace(r.FormValue("language")),
	}

	file, hdr, err := formFile(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var t *orchestrator.Transcription
	switch {
	case file != nil:
		defer file.Close()
		path, err := s.spool(file, hdr.Filename)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		defer s.removeTemp(path)
		t, err = s.pipe.Transcribe(r.Context(), path, opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		t.Source = hdr.Filename
	case strings.TrimSpace(r.FormValue("url")) != "":
		t, err = s.pipe.TranscribeURL(r.Context(), r.FormValue("url"), opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	default:
		s.fail(w, r, fmt.Errorf("no file or url: %w", orchestrator.ErrEmptyInput))
		return
	}

	resp := transcribeResponse{Transcription: t}
	if format := r.FormValue("persist"); format != "" {
		sid, dir, err := s.pipe.Persist(t, format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.SessionID, resp.OutputDir = sid, dir
	}

	if _, err := s.update(r, func(st *session.State) error {
		st.Transcription = t
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, resp)
}

// handleExport downloads the last transcription in ?format=.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = orchestrator.FormatText
	}
	name, contentType, err := orchestrator.ExportName(format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if st.Transcription == nil {
		s.fail(w, r, fmt.Errorf("no transcription: %w", errNoState))
		return
	}
	var buf bytes.Buffer
	if err := orchestrator.WriteTranscript(&buf, st.Transcription, format); err != nil {
		s.fail(w, r, err)
		return
	}
	attachment(w, name, contentType)
	_, _ = buf.WriteTo(w)
}
