package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicevision/voicevision/audio"
	"github.com/voicevision/voicevision/clients"
	cfg "github.com/voicevision/voicevision/config"
	"github.com/voicevision/voicevision/logging"
	"github.com/voicevision/voicevision/metrics"
	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/progress"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/tutor"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeServices answers for every external service on one test server.
type fakeServices struct {
	mu       sync.Mutex
	asrText  string
	asrCalls int
}

func (f *fakeServices) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.asrCalls++
		text := f.asrText
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(clients.ASRResp{
			Text:     text,
			Language: "en",
			Segments: []clients.TransSeg{{ID: 0, Start: 0, End: 1.5, Text: text}},
		})
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
	mux.HandleFunc("/qa", func(w http.ResponseWriter, r *http.Request) {
		var req clients.GenerateReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": req.Inputs + " It is about cats."}})
	})
	mux.HandleFunc("/words", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"word":"glad","score":3}]`)
	})
	// encyclopedia pages are all missing
	mux.HandleFunc("/page/summary/", http.NotFound)
	return mux
}

type testEnv struct {
	t       *testing.T
	srv     *Server
	ts      *httptest.Server
	client  *http.Client
	store   *session.MemoryStore
	fake    *fakeServices
	conf    *cfg.Root
	metrics *metrics.Collector
}

func newEnv(t *testing.T, tweak ...func(*cfg.Root)) *testEnv {
	t.Helper()
	fake := &fakeServices{asrText: "good morning"}
	up := httptest.NewServer(fake.handler())
	t.Cleanup(up.Close)

	c := cfg.Default()
	for _, s := range []*cfg.Service{
		&c.Services.ASR, &c.Services.Translate, &c.Services.TTS, &c.Services.YouTube,
		&c.Services.Transcript, &c.Services.Thesaurus, &c.Services.Wikipedia,
	} {
		s.URL = up.URL
		s.RatePerSec = 0
	}
	c.Services.QA.URL = up.URL + "/qa"
	c.Paths.Temp = t.TempDir()
	c.Paths.Outputs = t.TempDir()
	c.Paths.Progress = t.TempDir()
	c.Audio.FFmpeg = filepath.Join(t.TempDir(), "no-ffmpeg")
	for _, f := range tweak {
		f(c)
	}

	log := logging.Discard()
	clock := func() time.Time { return fixedNow }
	m := metrics.NewCollector("voicevision")
	h := clients.NewHTTP(clients.WithLogger(log), clients.WithObserver(m))
	pipe := orchestrator.NewPipeline(c, h,
		orchestrator.WithLogger(log),
		orchestrator.WithFeatureObserver(m),
		orchestrator.WithClock(clock))
	tut := tutor.New(tutor.NewServices(h, c), tutor.NewServices(h, c),
		progress.NewStore(c.Paths.Progress, progress.WithLogger(log), progress.WithClock(clock)),
		tutor.WithLogger(log), tutor.WithSeed(3))
	store := session.NewMemoryStore(time.Hour)

	srv, err := New(c, pipe, tut, store, WithLogger(log), WithMetrics(m), WithClock(clock))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		t: t, srv: srv, ts: ts, store: store, fake: fake, conf: c, metrics: m,
		client: &http.Client{Jar: jar},
	}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorInfo      `json:"error"`
	RequestID string          `json:"request_id"`
}

func (e *testEnv) send(req *http.Request) (*http.Response, envelope) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (e *testEnv) do(method, path string, body any) (*http.Response, envelope) {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

// ok runs a request that must succeed and decodes its data into out.
func (e *testEnv) ok(method, path string, body, out any) {
	e.t.Helper()
	resp, env := e.do(method, path, body)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, "%s %s: %+v", method, path, env.Error)
	require.True(e.t, env.Success)
	if out != nil {
		require.NoError(e.t, json.Unmarshal(env.Data, out))
	}
}

func (e *testEnv) upload(path, field, name, contentType string, data []byte, fields map[string]string) (*http.Response, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	if data != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(e.t, err)
		_, err = part.Write(data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req)
}

func (e *testEnv) sessionID() string {
	u, _ := url.Parse(e.ts.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == e.conf.Session.Cookie {
			return c.Value
		}
	}
	return ""
}

func wavBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.25 * float64(i%40-20) / 20
	}
	require.NoError(t, audio.WriteWAV(path, samples, 16000))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestHealthAndMiddleware(t *testing.T) {
	e := newEnv(t)

	resp, env := e.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, resp.Header.Get("X-Request-ID"), env.RequestID)
	assert.NotEmpty(t, e.sessionID())

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, env = e.send(req)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "req-42", env.RequestID)

	// the cookie is kept across requests
	first := e.sessionID()
	e.ok(http.MethodGet, "/api/v1/session", nil, nil)
	assert.Equal(t, first, e.sessionID())
}

func TestPages(t *testing.T) {
	e := newEnv(t)

	for _, tc := range []struct{ path, want string }{
		{"/", "Home"},
		{"/?page=tutor", "Language Tutor"},
		{"/translate", "Translator"},
		{"/audio", "Audio Transcription"},
		{"/documents", "Document Chat"},
		{"/static/app.js", "api("},
		{"/static/style.css", "sidebar"},
	} {
		resp, err := e.client.Get(e.ts.URL + tc.path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, tc.path)
		assert.Contains(t, string(body), tc.want, tc.path)
	}

	resp, err := e.client.Get(e.ts.URL + "/?page=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var view sessionView
	e.ok(http.MethodGet, "/api/v1/session", nil, &view)
	assert.Equal(t, "documents", view.Page, "the last rendered page is remembered")
}

func TestTranslateFlow(t *testing.T) {
	e := newEnv(t)

	var entry orchestrator.HistoryEntry
	e.ok(http.MethodPost, "/api/v1/translate", translateRequest{Text: "hello"}, &entry)
	assert.Equal(t, "English", entry.SourceLanguage)
	assert.Equal(t, "Hindi", entry.TargetLanguage)
	assert.Equal(t, "[hi] hello", entry.TranslatedText)

	e.ok(http.MethodPost, "/api/v1/translate", translateRequest{Text: "cat", Source: "English", Target: "Spanish"}, &entry)
	assert.Equal(t, "[es] cat", entry.TranslatedText)

	var langs session.LanguagePair
	e.ok(http.MethodPost, "/api/v1/translate/swap", nil, &langs)
	assert.Equal(t, session.LanguagePair{Source: "Spanish", Target: "English"}, langs)

	var history []orchestrator.HistoryEntry
	e.ok(http.MethodGet, "/api/v1/translate/history", nil, &history)
	require.Len(t, history, 2)

	resp, err := e.client.Get(e.ts.URL + "/api/v1/translate/download?index=0")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "translation_")
	assert.Contains(t, string(body), "[")

	e.ok(http.MethodDelete, "/api/v1/translate/history", nil, nil)
	e.ok(http.MethodGet, "/api/v1/translate/history", nil, &history)
	assert.Empty(t, history)

	resp, env := e.do(http.MethodPost, "/api/v1/translate", translateRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)

	resp, _ = e.do(http.MethodPost, "/api/v1/translate", translateRequest{Text: "hi", Target: "Klingon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/v1/translate", map[string]any{"text": "hi", "extra": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")
}

func TestSpeech(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Get(e.ts.URL + "/api/v1/speech?text=hola&lang=es")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "MP3hola", string(body))

	r2, env := e.do(http.MethodGet, "/api/v1/speech?text=", nil)
	assert.Equal(t, http.StatusBadRequest, r2.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)
}

func TestTranscribeUploadAndExport(t *testing.T) {
	e := newEnv(t)

	resp, env := e.do(http.MethodGet, "/api/v1/transcribe/export?format=srt", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", env.Error.Code)

	resp, env = e.upload("/api/v1/transcribe", "file", "talk.wav", "audio/wav", wavBytes(t),
		map[string]string{"keywords": "on", "persist": "srt"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	var out transcribeResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "good morning", out.Transcription.Text)
	assert.Equal(t, "talk.wav", out.Transcription.Source)
	assert.NotEmpty(t, out.Transcription.Keywords)
	require.NotEmpty(t, out.SessionID)
	assert.FileExists(t, filepath.Join(out.OutputDir, "transcription.srt"))
	assert.FileExists(t, filepath.Join(out.OutputDir, "transcript.json"))

	res, err := e.client.Get(e.ts.URL + "/api/v1/transcribe/export?format=srt")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `attachment; filename="transcription.srt"`, res.Header.Get("Content-Disposition"))
	assert.Contains(t, string(body), "00:00:00,000 --> 00:00:01,500")

	resp, env = e.do(http.MethodGet, "/api/v1/transcribe/export?format=doc", nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, env = e.upload("/api/v1/transcribe", "file", "", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)

	resp, _ = e.upload("/api/v1/transcribe", "file", "", "", nil, map[string]string{"url": "ftp://x/y.mp3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	e := newEnv(t, func(c *cfg.Root) { c.Server.MaxUploadMB = 1 })

	resp, env := e.upload("/api/v1/transcribe", "file", "big.wav", "audio/wav", make([]byte, 1<<20+64<<10), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "too_large", env.Error.Code)
}

func TestRecorderFlow(t *testing.T) {
	e := newEnv(t)

	resp, env := e.do(http.MethodPost, "/api/v1/recorder/translate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = e.do(http.MethodPost, "/api/v1/recorder/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, env = e.do(http.MethodPost, "/api/v1/recorder/rewind", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)

	var st session.RecorderStatus
	e.ok(http.MethodPost, "/api/v1/recorder/start", recorderStart{AutoStop: true, Timeout: 10}, &st)
	assert.Equal(t, session.Recording, st.State)
	assert.Equal(t, 20.0, st.Limit)
	assert.True(t, st.CanPause)

	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+"/api/v1/recorder/chunk", bytes.NewReader(wavBytes(t)))
	req.Header.Set("Content-Type", "audio/wav")
	resp, env = e.send(req)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Positive(t, st.Bytes)

	e.ok(http.MethodPost, "/api/v1/recorder/stop", nil, &st)
	assert.Equal(t, session.Stopped, st.State)
	assert.True(t, st.CanTrans)

	var rt orchestrator.RecordingTranslation
	e.ok(http.MethodPost, "/api/v1/recorder/translate", nil, &rt)
	assert.Equal(t, "good morning", rt.Recognized)
	assert.Equal(t, "[hi] good morning", rt.Entry.TranslatedText)

	var history []orchestrator.HistoryEntry
	e.ok(http.MethodGet, "/api/v1/translate/history", nil, &history)
	require.Len(t, history, 1)

	e.fake.mu.Lock()
	e.fake.asrText = "  "
	e.fake.mu.Unlock()
	resp, env = e.do(http.MethodPost, "/api/v1/recorder/translate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "not_understood", env.Error.Code)
}

func TestRecorderStream(t *testing.T) {
	e := newEnv(t)
	e.ok(http.MethodPost, "/api/v1/recorder/start", nil, nil)

	u, _ := url.Parse(e.ts.URL)
	header := http.Header{}
	for _, c := range e.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/v1/recorder/stream?mime=audio%2Fwebm"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	var reply streamReply
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("abc")))
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Status)
	assert.Empty(t, reply.Error)
	assert.Equal(t, 3, reply.Status.Bytes)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("de")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 5, reply.Status.Bytes)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"stop"}`)))
	reply = streamReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, session.Stopped, reply.Status.State)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("late")))
	reply = streamReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.NotEmpty(t, reply.Error)
	assert.Equal(t, 5, reply.Status.Bytes)

	st, err := e.store.Get(context.Background(), e.sessionID())
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(st.Recorder.Audio))
	assert.Equal(t, "audio/webm", st.Recorder.MimeType)
}

func TestDocumentChat(t *testing.T) {
	e := newEnv(t)

	resp, env := e.do(http.MethodPost, "/api/v1/documents/ask", askRequest{Question: "what?"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = e.upload("/api/v1/documents", "file", "notes.txt", "text/plain", []byte("Cats sleep a lot."), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	var doc documentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, orchestrator.KindText, doc.Kind)
	require.Len(t, doc.Chat, 1)
	assert.Equal(t, session.RoleAssistant, doc.Chat[0].Role)

	var reply session.Message
	e.ok(http.MethodPost, "/api/v1/documents/ask", askRequest{Question: "What is it about?"}, &reply)
	assert.Equal(t, "It is about cats.", reply.Content)
	assert.Equal(t, "12:00", reply.Time)

	var chat []session.Message
	e.ok(http.MethodGet, "/api/v1/documents/chat", nil, &chat)
	require.Len(t, chat, 3)
	assert.Equal(t, session.RoleUser, chat[1].Role)

	resp, _ = e.upload("/api/v1/documents", "file", "slides.pptx", "application/vnd.ms-powerpoint", []byte("x"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	e.ok(http.MethodDelete, "/api/v1/documents", nil, nil)
	e.ok(http.MethodGet, "/api/v1/documents/chat", nil, &chat)
	assert.Empty(t, chat)
}

func TestWords(t *testing.T) {
	e := newEnv(t)

	var rep orchestrator.WordReport
	e.ok(http.MethodPost, "/api/v1/words", wordRequest{Word: "happy"}, &rep)
	assert.Equal(t, "happy", rep.Word)
	assert.Contains(t, rep.Synonyms, "Glad")

	resp, _ := e.do(http.MethodPost, "/api/v1/words", wordRequest{Word: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTutorLessons(t *testing.T) {
	e := newEnv(t)

	var lesson tutor.Lesson
	e.ok(http.MethodGet, "/api/v1/tutor/lesson?lang=es", nil, &lesson)
	assert.Equal(t, "Spanish", lesson.Language.Name)
	assert.Equal(t, tutor.NoLanguageInfo, lesson.Info)
	assert.NotEmpty(t, lesson.GrammarRules)

	var phrases []tutor.Pair
	e.ok(http.MethodGet, "/api/v1/tutor/phrases?lang=es", nil, &phrases)
	require.NotEmpty(t, phrases)
	assert.Equal(t, "[es] "+phrases[0].English, phrases[0].Translated)

	var p tutor.Pair
	e.ok(http.MethodPost, "/api/v1/tutor/translate", tutorTranslateRequest{Lang: "fr", Text: "good night"}, &p)
	assert.Equal(t, "[fr] good night", p.Translated)

	var pron pronunciationView
	e.ok(http.MethodGet, "/api/v1/tutor/pronunciation?lang=es&category=food", nil, &pron)
	assert.LessOrEqual(t, len(pron.Words), 10)
	assert.NotEmpty(t, pron.TongueTwisters)

	resp, env := e.do(http.MethodGet, "/api/v1/tutor/lesson?lang=xx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)

	resp, _ = e.do(http.MethodGet, "/api/v1/tutor/vocabulary?lang=es&category=weather", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var items []tutor.Exercise
	e.ok(http.MethodGet, "/api/v1/tutor/exercises?kind=choice&level=beginner", nil, &items)
	require.NotEmpty(t, items)
	resp, _ = e.do(http.MethodGet, "/api/v1/tutor/exercises?kind=essay", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressNeedsUser(t *testing.T) {
	e := newEnv(t)

	resp, env := e.do(http.MethodGet, "/api/v1/progress?lang=es", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", env.Error.Code)

	e.ok(http.MethodPost, "/api/v1/user", userRequest{Username: " ana "}, nil)
	var view progressView
	e.ok(http.MethodGet, "/api/v1/progress?lang=es", nil, &view)
	assert.Nil(t, view.Report)
	assert.Equal(t, progress.GettingStarted, view.GettingStarted)

	var learned map[string]any
	e.ok(http.MethodPost, "/api/v1/tutor/vocabulary", lessonRequest{Lang: "es", Category: "food"}, &learned)
	assert.Equal(t, true, learned["tracked"])
	e.ok(http.MethodPost, "/api/v1/tutor/practice", lessonRequest{Lang: "es", Level: "beginner"}, nil)

	e.ok(http.MethodGet, "/api/v1/progress?lang=es&level=beginner", nil, &view)
	require.NotNil(t, view.Report)
	assert.Equal(t, 5, view.Report.Stats.WordsLearned)
	assert.Equal(t, 1, view.Report.Stats.PracticeSessions)
	assert.FileExists(t, filepath.Join(e.conf.Paths.Progress, "ana_es.json"))
}

func TestQuizFlow(t *testing.T) {
	e := newEnv(t)
	e.ok(http.MethodPost, "/api/v1/user", userRequest{Username: "ana"}, nil)

	resp, _ := e.do(http.MethodPost, "/api/v1/tutor/quiz/answer", answerRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env := e.do(http.MethodPost, "/api/v1/tutor/quiz", startQuizRequest{Lang: "es", Category: "greetings", Questions: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	assert.NotContains(t, string(env.Data), `"correct"`, "answers stay hidden until answered")
	var quiz quizView
	require.NoError(t, json.Unmarshal(env.Data, &quiz))
	require.Len(t, quiz.Questions, 3)
	assert.Len(t, quiz.Questions[0].Options, 4)

	var ans answerView
	e.ok(http.MethodPost, "/api/v1/tutor/quiz/answer", answerRequest{Question: 0, Choice: 0}, &ans)
	assert.Equal(t, ans.Correct == 0, ans.Result.Correct)
	assert.Equal(t, quiz.Questions[0].Options[ans.Correct], ans.Answer)
	assert.False(t, ans.Complete)

	resp, env = e.do(http.MethodPost, "/api/v1/tutor/quiz/answer", answerRequest{Question: 0, Choice: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = e.do(http.MethodPost, "/api/v1/tutor/quiz/answer", answerRequest{Question: 9, Choice: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	e.ok(http.MethodGet, "/api/v1/tutor/quiz", nil, &quiz)
	require.NotNil(t, quiz.Questions[0].Correct)
	assert.Nil(t, quiz.Questions[1].Correct)
	assert.Equal(t, 1, quiz.Answered)

	e.ok(http.MethodPost, "/api/v1/tutor/quiz/end", nil, &quiz)
	resp, _ = e.do(http.MethodGet, "/api/v1/tutor/quiz", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var view progressView
	e.ok(http.MethodGet, "/api/v1/progress?lang=es", nil, &view)
	require.NotNil(t, view.Report)
	require.Len(t, view.Report.QuizScores, 1)
	assert.Equal(t, ans.Percent, view.Report.QuizScores[0].Score)
}

func TestFlashcards(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "next"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var fc flashcardView
	e.ok(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "start", Lang: "de", Category: "food"}, &fc)
	require.True(t, fc.Active)
	assert.Equal(t, 0, fc.Face.Index)
	assert.False(t, fc.Face.Flipped)
	assert.Equal(t, "en", fc.Face.Lang)
	english := fc.Face.Text

	e.ok(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "flip"}, &fc)
	assert.True(t, fc.Face.Flipped)
	assert.Equal(t, "[de] "+english, fc.Face.Text)

	e.ok(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "next"}, &fc)
	assert.Equal(t, 1, fc.Face.Index)
	assert.False(t, fc.Face.Flipped)

	resp, _ = e.do(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "shuffle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	e.ok(http.MethodPost, "/api/v1/tutor/flashcards", flashcardRequest{Action: "exit"}, &fc)
	assert.False(t, fc.Active)
}

func TestExerciseCheck(t *testing.T) {
	e := newEnv(t)
	items := tutor.Exercises(tutor.ExerciseBuild, tutor.LevelBeginner)
	require.NotEmpty(t, items)

	var res tutor.ExerciseResult
	e.ok(http.MethodPost, "/api/v1/tutor/exercise", exerciseRequest{
		Lang: "it", Kind: tutor.ExerciseBuild, Level: tutor.LevelBeginner, Index: 0, Answer: "wrong words",
	}, &res)
	assert.False(t, res.Correct)
	assert.NotEmpty(t, res.Expected)

	resp, _ := e.do(http.MethodPost, "/api/v1/tutor/exercise", exerciseRequest{Lang: "it", Kind: tutor.ExerciseFill, Index: 99})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.ok(http.MethodGet, "/health", nil, nil)
	e.ok(http.MethodPost, "/api/v1/translate", translateRequest{Text: "hello"}, nil)

	resp, err := e.client.Get(e.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `voicevision_http_requests_total{method="GET",route="GET /health",status="200"} 1`)
	assert.Contains(t, string(body), `voicevision_feature_uses_total{feature="translate",outcome="ok"} 1`)
	assert.Contains(t, string(body), `voicevision_upstream_calls_total`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recovery(logging.Discard()), RequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "internal", env.Error.Code)
}

func TestSessionCookieRejectsForgedID(t *testing.T) {
	var seen string
	h := SessionCookie("vv", time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "vv", Value: "../../etc"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, seen, 36)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestErrorStatus(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{orchestrator.ErrEmptyInput, http.StatusBadRequest},
		{fmt.Errorf("x: %w", tutor.ErrUnknownLanguage), http.StatusBadRequest},
		{audio.ErrNotMono16, http.StatusUnsupportedMediaType},
		{session.ErrNoRecording, http.StatusConflict},
		{tutor.ErrAlreadyAnswered, http.StatusConflict},
		{orchestrator.ErrNotUnderstood, http.StatusUnprocessableEntity},
		{&clients.StatusError{Service: "asr", Code: 503}, http.StatusBadGateway},
		{fmt.Errorf("asr: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("disk full"), http.StatusInternalServerError},
	} {
		got, _ := errorStatus(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
	}
}
