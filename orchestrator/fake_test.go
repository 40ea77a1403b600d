package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/voicevision/voicevision/clients"
	cfg "github.com/voicevision/voicevision/config"
	"github.com/voicevision/voicevision/logging"
)

var fixedNow = time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)

// upstream fakes every external service on one server.
type upstream struct {
	mu        sync.Mutex
	asr       clients.ASRResp
	asrLangs  []string
	asrFail   bool
	prompts   []string
	answer    string
	noCaps    bool
	antonymUp bool
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.asrFail {
			http.Error(w, "model offline", http.StatusServiceUnavailable)
			return
		}
		u.asrLangs = append(u.asrLangs, r.FormValue("language"))
		_ = json.NewEncoder(w).Encode(u.asr)
	})
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		var req clients.TranslateReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"translatedText": fmt.Sprintf("[%s] %s", req.Target, req.Q),
		})
	})
	mux.HandleFunc("/translate_tts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "MP3"+r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[{"id":"abc123","snippet":{"title":"Great Talk 😀: Part 1/2",
			"thumbnails":{"high":{"url":"https://img.example/abc.jpg"}}},
			"contentDetails":{"duration":"PT1H2M3S"}}]}`)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.noCaps {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `<transcript><text start="0" dur="1.5">This is good</text>`+
			`<text start="1.5" dur="2">really great &amp;amp; happy</text></transcript>`)
	})
	mux.HandleFunc("/qa", func(w http.ResponseWriter, r *http.Request) {
		var req clients.GenerateReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		u.mu.Lock()
		u.prompts = append(u.prompts, req.Inputs)
		answer := u.answer
		u.mu.Unlock()
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": req.Inputs + answer}})
	})
	mux.HandleFunc("/words", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rel_ant") != "" {
			u.mu.Lock()
			up := u.antonymUp
			u.mu.Unlock()
			if !up {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, `[{"word":"sad","score":1}]`)
			return
		}
		_, _ = io.WriteString(w, `[{"word":"glad","score":3},{"word":"FELICITOUS","score":2}]`)
	})
	mux.HandleFunc("/clip.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ID3-fake-audio")
	})
	return mux
}

func (u *upstream) setASR(r clients.ASRResp) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.asr = r
}

func (u *upstream) languages() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.asrLangs...)
}

func (u *upstream) promptList() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.prompts...)
}

// stubConverter stands in for ffmpeg: every output is a copy of wav. It
// records the requested rate and channel count of each call.
type stubConverter struct {
	mu       sync.Mutex
	wav      string
	rates    []int
	channels []int
}

func (s *stubConverter) copy(out string, rate, channels int) error {
	s.mu.Lock()
	s.rates = append(s.rates, rate)
	s.channels = append(s.channels, channels)
	s.mu.Unlock()
	b, err := os.ReadFile(s.wav)
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func (s *stubConverter) ToWAV(_ context.Context, _, out string, rate, channels int) error {
	return s.copy(out, rate, channels)
}

func (s *stubConverter) ExtractAudio(_ context.Context, _, out string, rate int) error {
	return s.copy(out, rate, 1)
}

// onePagePDF builds a minimal single page PDF showing text in Helvetica.
func onePagePDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 20 100 Td (%s) Tj ET", text)
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func newTestPipeline(t *testing.T, u *upstream, opts ...Option) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(u.handler())
	t.Cleanup(srv.Close)

	c := cfg.Default()
	for _, s := range []*cfg.Service{
		&c.Services.ASR, &c.Services.Translate, &c.Services.TTS, &c.Services.YouTube,
		&c.Services.Transcript, &c.Services.Thesaurus, &c.Services.Wikipedia,
	} {
		s.URL = srv.URL
		s.RatePerSec = 0
	}
	c.Services.QA.URL = srv.URL + "/qa"
	c.Paths.Temp = t.TempDir()
	c.Paths.Outputs = t.TempDir()
	c.Audio.FFmpeg = filepath.Join(t.TempDir(), "no-ffmpeg")

	h := clients.NewHTTP(clients.WithLogger(logging.Discard()))
	opts = append([]Option{WithLogger(logging.Discard()), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewPipeline(c, h, opts...)
}
