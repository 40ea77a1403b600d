package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/session"
)

type urlRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleYouTube(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.pipe.AnalyzeVideo(r.Context(), req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, v)
}

type documentResponse struct {
	Name  string            `json:"name"`
	Kind  string            `json:"kind"`
	Chars int               `json:"chars"`
	Chat  []session.Message `json:"chat"`
}

// handleDocument extracts the text of an uploaded document and makes it the
// session's chat subject.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	file, hdr, err := formFile(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if file == nil {
		s.fail(w, r, fmt.Errorf("no file: %w", orchestrator.ErrEmptyInput))
		return
	}
	defer file.Close()

	doc, err := s.pipe.IngestDocument(r.Context(), hdr.Filename, hdr.Header.Get("Content-Type"), file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.update(r, func(st *session.State) error {
		st.SetDocument(doc, s.now())
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, documentResponse{Name: doc.Name, Kind: doc.Kind, Chars: len([]rune(doc.Text)), Chat: st.Chat})
}

func (s *Server) handleClearDocument(w http.ResponseWriter, r *http.Request) {
	if _, err := s.update(r, func(st *session.State) error {
		st.Document = nil
		st.Chat = nil
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, []session.Message{})
}

type askRequest struct {
	Question string `json:"question"`
}

// handleAsk answers a question about the active document and appends both
// sides to the chat.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		s.fail(w, r, fmt.Errorf("question: %w", orchestrator.ErrEmptyInput))
		return
	}
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if st.Document == nil {
		s.fail(w, r, fmt.Errorf("no document uploaded: %w", errNoState))
		return
	}

	answer, err := s.pipe.Ask(r.Context(), st.Document.Text, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var reply session.Message
	if _, err := s.update(r, func(st *session.State) error {
		now := s.now()
		st.AddMessage(session.RoleUser, q, now)
		reply = st.AddMessage(session.RoleAssistant, answer, now)
		return nil
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, reply)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	chat := st.Chat
	if chat == nil {
		chat = []session.Message{}
	}
	s.ok(w, r, chat)
}

type wordRequest struct {
	Word string `json:"word"`
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.pipe.ExploreWord(r.Context(), req.Word)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, rep)
}
