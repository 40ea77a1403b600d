// Package session holds per-browser UI state between requests, in memory or
// in Redis.
package session

import (
	"sort"
	"time"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/tutor"
)

const chatTimeLayout = "15:04"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

// LanguagePair is the translator's current source and target selection.
type LanguagePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type State struct {
	ID        string       `json:"id"`
	Page      string       `json:"page"`
	Username  string       `json:"username,omitempty"`
	Languages LanguagePair `json:"languages"`

	History  []orchestrator.HistoryEntry `json:"history"`
	Recorder Recorder                    `json:"recorder"`

	Transcription *orchestrator.Transcription `json:"transcription,omitempty"`
	Document      *orchestrator.Document      `json:"document,omitempty"`
	Chat          []Message                   `json:"chat"`

	Quiz *tutor.Quiz `json:"quiz,omitempty"`
	Deck *tutor.Deck `json:"deck,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string) *State {
	return &State{
		ID:        id,
		Page:      "home",
		Languages: LanguagePair{Source: "English", Target: "Hindi"},
	}
}

func (s *State) AddHistory(e orchestrator.HistoryEntry) {
	s.History = append(s.History, e)
}

// SortedHistory returns the history newest first. Timestamps sort as text.
func (s *State) SortedHistory() []orchestrator.HistoryEntry {
	out := append([]orchestrator.HistoryEntry(nil), s.History...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (s *State) ClearHistory() { s.History = nil }

func (s *State) SwapLanguages() {
	s.Languages.Source, s.Languages.Target = orchestrator.SwapLanguages(s.Languages.Source, s.Languages.Target)
}

func (s *State) AddMessage(role, content string, now time.Time) Message {
	m := Message{Role: role, Content: content, Time: now.Format(chatTimeLayout)}
	s.Chat = append(s.Chat, m)
	return m
}

// SetDocument replaces the active document and restarts the chat with its
// greeting.
func (s *State) SetDocument(d *orchestrator.Document, now time.Time) {
	s.Document = d
	s.Chat = nil
	s.AddMessage(RoleAssistant, d.Greeting(), now)
}
