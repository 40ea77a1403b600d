package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]int
	fails map[string]int
}

func newObserver() *recordingObserver {
	return &recordingObserver{calls: map[string]int{}, fails: map[string]int{}}
}

func (o *recordingObserver) ObserveUpstream(service string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[service]++
	if err != nil {
		o.fails[service]++
	}
}

func TestASRUploadsFileAndLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hi", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "clip.wav", hdr.Filename)
		assert.Equal(t, "RIFF", string(body))

		_ = json.NewEncoder(w).Encode(ASRResp{
			Language: "hi",
			Segments: []TransSeg{{Start: 0, End: 1, Text: " namaste "}, {Start: 1, End: 2, Text: "duniya"}},
		})
	}))
	defer srv.Close()

	p := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o644))

	obs := newObserver()
	h := NewHTTP(WithObserver(obs))
	out, err := h.ASR(context.Background(), srv.URL, p, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Language)
	assert.Equal(t, "namaste duniya", out.Text)
	assert.Len(t, out.Segments, 2)
	assert.Equal(t, 1, obs.calls[ServiceASR])
	assert.Equal(t, 0, obs.fails[ServiceASR])
}

func TestASRNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	obs := newObserver()
	_, err := NewHTTP(WithObserver(obs)).ASR(context.Background(), srv.URL, p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asr 503")
	assert.Contains(t, err.Error(), "model offline")
	assert.ErrorIs(t, err, ErrUpstream)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, 1, obs.fails[ServiceASR])
}

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TranslateReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req.Q)
		assert.Equal(t, "auto", req.Source)
		assert.Equal(t, "fr", req.Target)
		assert.Equal(t, "k", req.APIKey)
		_, _ = io.WriteString(w, `{"translatedText":"Bonjour"}`)
	}))
	defer srv.Close()

	out, err := NewHTTP().Translate(context.Background(), srv.URL, "k", "Hello", "", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", out)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"translatedText":"x"}`)
	}))
	defer srv.Close()

	h := NewHTTP(WithService(ServiceTranslate, time.Second, 0.001))
	_, err := h.Translate(context.Background(), srv.URL, "", "a", "en", "fr")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Translate(ctx, srv.URL, "", "b", "en", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestSpeakConcatenatesChunks(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_tts", r.URL.Path)
		assert.Equal(t, "de", r.URL.Query().Get("tl"))
		mu.Lock()
		got = append(got, r.URL.Query().Get("q"))
		mu.Unlock()
		_, _ = io.WriteString(w, "[mp3:"+r.URL.Query().Get("idx")+"]")
	}))
	defer srv.Close()

	text := strings.Repeat("Guten Morgen, wie geht es dir heute? ", 5)
	audio, err := NewHTTP().Speak(context.Background(), srv.URL, text, "de")
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Greater(t, len(got), 1)
	for _, q := range got {
		assert.LessOrEqual(t, len([]rune(q)), ttsMaxChars)
	}
	assert.True(t, strings.HasPrefix(string(audio), "[mp3:0][mp3:1]"))
}

func TestSpeakEmpty(t *testing.T) {
	_, err := NewHTTP().Speak(context.Background(), "http://unused", "   ", "en")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSplitForSpeech(t *testing.T) {
	assert.Nil(t, SplitForSpeech("", 100))
	assert.Equal(t, []string{"short text"}, SplitForSpeech("  short   text ", 100))

	long := strings.Repeat("a", 25)
	parts := SplitForSpeech(long, 10)
	assert.Equal(t, []string{"aaaaaaaaaa", "aaaaaaaaaa", "aaaaa"}, parts)

	parts = SplitForSpeech("One two. Three four five six seven. Eight.", 20)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 20)
	}
	assert.Equal(t, "One two. Three four five six seven. Eight.", strings.Join(parts, " "))
}

func TestVideoDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "snippet,contentDetails", r.URL.Query().Get("part"))
		assert.Equal(t, "KEY", r.URL.Query().Get("key"))
		if r.URL.Query().Get("id") == "missing" {
			_, _ = io.WriteString(w, `{"items":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"id":"abc","snippet":{"title":"Cats","thumbnails":{"high":{"url":"http://img/hq.jpg"}}},"contentDetails":{"duration":"PT4M13S"}}]}`)
	}))
	defer srv.Close()

	h := NewHTTP()
	d, err := h.VideoDetails(context.Background(), srv.URL, "KEY", "abc")
	require.NoError(t, err)
	assert.Equal(t, "Cats", d.Title)
	assert.Equal(t, "http://img/hq.jpg", d.Thumbnail)
	assert.Equal(t, "PT4M13S", d.Duration)

	_, err = h.VideoDetails(context.Background(), srv.URL, "KEY", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("v") {
		case "none":
			return
		default:
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="utf-8" ?><transcript>`+
				`<text start="0.5" dur="1.5">it&amp;#39;s a good day</text>`+
				`<text start="2" dur="3">second
line</text></transcript>`)
		}
	}))
	defer srv.Close()

	h := NewHTTP()
	caps, err := h.Captions(context.Background(), srv.URL, "abc", "")
	require.NoError(t, err)
	require.Len(t, caps, 2)
	assert.Equal(t, Caption{Start: 0.5, Duration: 1.5, Text: "it's a good day"}, caps[0])
	assert.Equal(t, "second line", caps[1].Text)

	_, err = h.Captions(context.Background(), srv.URL, "none", "en")
	assert.ErrorIs(t, err, ErrNoCaptions)
}

func TestGenerateShapes(t *testing.T) {
	replies := map[string]string{
		"list":   `[{"generated_text":"<|assistant|> answer one"}]`,
		"object": `{"generated_text":"answer two"}`,
		"empty":  `{}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req GenerateReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Inputs == "fail" {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, replies[req.Inputs])
	}))
	defer srv.Close()

	h := NewHTTP()
	ctx := context.Background()

	out, err := h.Generate(ctx, srv.URL, "tok", "list")
	require.NoError(t, err)
	assert.Equal(t, "<|assistant|> answer one", out)

	out, err = h.Generate(ctx, srv.URL, "tok", "object")
	require.NoError(t, err)
	assert.Equal(t, "answer two", out)

	out, err = h.Generate(ctx, srv.URL, "tok", "empty")
	require.NoError(t, err)
	assert.Equal(t, NoResponse, out)

	_, err = h.Generate(ctx, srv.URL, "tok", "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qa 503")
}

func TestRelated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/words", r.URL.Path)
		if r.URL.Query().Get("rel_syn") == "happy" {
			_, _ = io.WriteString(w, `[{"word":"glad"},{"word":"felicitous"},{"word":"well-chosen"},{"word":"content"},{"word":"cheerful"},{"word":"joyful"}]`)
			return
		}
		assert.Equal(t, "happy", r.URL.Query().Get("rel_ant"))
		_, _ = io.WriteString(w, `[{"word":"unhappy"}]`)
	}))
	defer srv.Close()

	h := NewHTTP()
	syn, err := h.Related(context.Background(), srv.URL, RelSynonym, "happy", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"glad", "felicitous", "well-chosen", "content", "cheerful"}, syn)

	ant, err := h.Related(context.Background(), srv.URL, RelAntonym, "happy", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"unhappy"}, ant)
}

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page/summary/Hindi_language":
			_, _ = io.WriteString(w, `{"type":"standard","extract":"Hindi is an Indo-Aryan language. It is spoken in India. It has 600 million speakers. It is written in Devanagari. It is official."}`)
		case "/page/summary/Mercury":
			_, _ = io.WriteString(w, `{"type":"disambiguation","extract":"Mercury may refer to:"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP()
	s, err := h.Summary(context.Background(), srv.URL, "Hindi language", 4)
	require.NoError(t, err)
	assert.Equal(t, "Hindi is an Indo-Aryan language. It is spoken in India. It has 600 million speakers. It is written in Devanagari.", s)

	_, err = h.Summary(context.Background(), srv.URL, "Mercury", 4)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.Summary(context.Background(), srv.URL, "Nothing here", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirstSentences(t *testing.T) {
	assert.Equal(t, "A. B!", FirstSentences("A. B! C? D.", 2))
	assert.Equal(t, "Version 1.5 is out.", FirstSentences("Version 1.5 is out. More text.", 1))
	assert.Equal(t, "no stop", FirstSentences(" no stop ", 3))
	assert.Equal(t, "A. B.", FirstSentences("A. B.", 0))
}

func TestDownloadLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer srv.Close()

	var sb strings.Builder
	n, err := NewHTTP().Download(context.Background(), srv.URL, &sb, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "0123456789", sb.String())

	_, err = NewHTTP().Download(context.Background(), srv.URL, io.Discard, 5)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
