package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/voicevision/voicevision/clients"
	"github.com/voicevision/voicevision/progress"
)

func writeConfig(t *testing.T, v map[string]any) string {
	t.Helper()
	b, err := yaml.Marshal(v)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, b, 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	p := writeConfig(t, map[string]any{
		"server": map[string]any{"addr": ":7777"},
	})
	out, err := run(t, "--config", p, "config")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, ":7777", got["server"].(map[string]any)["addr"])
	assert.Equal(t, "memory", got["session"].(map[string]any)["store"])
}

func TestConfigCommandRejectsInvalid(t *testing.T) {
	p := writeConfig(t, map[string]any{
		"session": map[string]any{"store": "etcd"},
	})
	_, err := run(t, "--config", p, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestTranslateCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req clients.TranslateReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(clients.TranslateResp{TranslatedText: "[" + req.Target + "] " + req.Q})
	}))
	defer ts.Close()

	p := writeConfig(t, map[string]any{
		"services": map[string]any{"translate": map[string]any{"url": ts.URL}},
	})
	out, err := run(t, "--config", p, "translate", "--to", "Spanish", "good", "morning")
	require.NoError(t, err)
	assert.Equal(t, "[es] good morning\n", out)

	_, err = run(t, "--config", p, "translate", "--to", "Klingon", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: ")
}

func TestProgressCommand(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, map[string]any{
		"paths": map[string]any{"progress": dir},
	})

	out, err := run(t, "--config", p, "progress", "--user", "ana", "--lang", "es")
	require.NoError(t, err)
	assert.Contains(t, out, "No progress recorded for ana")
	assert.Contains(t, out, progress.GettingStarted[0])

	store := progress.NewStore(dir)
	_, err = store.Save("ana", "es", progress.ActivityVocabulary, nil)
	require.NoError(t, err)

	out, err = run(t, "--config", p, "progress", "-u", "ana", "-l", "es")
	require.NoError(t, err)
	assert.Contains(t, out, "Words learned:       5")
	assert.Contains(t, out, "Milestone:")
}

func TestProgressCommandNeedsUser(t *testing.T) {
	p := writeConfig(t, map[string]any{})
	_, err := run(t, "--config", p, "progress", "--lang", "es")
	assert.Error(t, err)
}

func TestTranscribeCommandRejectsFormat(t *testing.T) {
	p := writeConfig(t, map[string]any{})
	_, err := run(t, "--config", p, "transcribe", "--format", "docx", "clip.wav")
	assert.Error(t, err)
}
