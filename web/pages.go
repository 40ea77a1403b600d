package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/tutor"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type pageInfo struct {
	Name  string
	Title string
	Icon  string
}

// pageOrder is the sidebar navigation.
var pageOrder = []pageInfo{
	{"home", "Home", "🏠"},
	{"audio", "Audio Transcription", "🎙️"},
	{"translate", "Translator", "🌐"},
	{"youtube", "YouTube Analyzer", "📺"},
	{"documents", "Document Chat", "📄"},
	{"words", "Word Explorer", "📚"},
	{"tutor", "Language Tutor", "🗣️"},
}

func findPage(name string) (pageInfo, bool) {
	for _, p := range pageOrder {
		if p.Name == name {
			return p, true
		}
	}
	return pageInfo{}, false
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{"lower": strings.ToLower}
	out := make(map[string]*template.Template, len(pageOrder))
	for _, p := range pageOrder {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+p.Name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", p.Name, err)
		}
		out[p.Name] = t
	}
	return out, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type pageData struct {
	Page       pageInfo
	Nav        []pageInfo
	AppName    string
	Version    string
	State      *session.State
	History    []orchestrator.HistoryEntry
	Languages  []orchestrator.Language
	Learning   []tutor.Language
	Levels     []string
	Categories []string
}

// handlePage renders one page. The home route also honours ?page=.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.URL.Path, "/")
	if name == "" {
		name = r.URL.Query().Get("page")
	}
	if name == "" {
		name = "home"
	}
	page, ok := findPage(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	st, err := s.update(r, func(st *session.State) error {
		st.Page = page.Name
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := pageData{
		Page:       page,
		Nav:        pageOrder,
		AppName:    s.cfg.App.Name,
		Version:    s.cfg.App.Version,
		State:      st,
		History:    st.SortedHistory(),
		Languages:  orchestrator.Languages(),
		Learning:   tutor.Languages(),
		Levels:     tutor.Levels,
		Categories: tutor.Categories,
	}
	var buf bytes.Buffer
	if err := s.pages[page.Name].Execute(&buf, data); err != nil {
		s.fail(w, r, fmt.Errorf("render %s: %w", page.Name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
