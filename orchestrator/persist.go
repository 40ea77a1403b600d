package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FormatText        = "txt"
	FormatTimestamped = "timestamped"
	FormatSRT         = "srt"
	FormatVTT         = "vtt"
	FormatJSON        = "json"
)

type exportFormat struct {
	file        string
	contentType string
}

var exportFormats = map[string]exportFormat{
	FormatText:        {"transcription.txt", "text/plain; charset=utf-8"},
	FormatTimestamped: {"timestamped_transcript.txt", "text/plain; charset=utf-8"},
	FormatSRT:         {"transcription.srt", "application/x-subrip"},
	FormatVTT:         {"transcription.vtt", "text/vtt; charset=utf-8"},
	FormatJSON:        {"transcription.json", "application/json"},
}

// ExportName returns the download file name and content type for format.
func ExportName(format string) (string, string, error) {
	f, ok := exportFormats[format]
	if !ok {
		return "", "", fmt.Errorf("export format %q: %w", format, ErrUnsupportedMedia)
	}
	return f.file, f.contentType, nil
}

type exportJSON struct {
	Language string         `json:"language"`
	Segments []Segment      `json:"segments"`
	Analysis map[string]any `json:"analysis"`
}

// WriteTranscript renders t in one of the export formats.
func WriteTranscript(w io.Writer, t *Transcription, format string) error {
	switch format {
	case FormatText:
		_, err := io.WriteString(w, t.Text)
		return err
	case FormatTimestamped:
		_, err := io.WriteString(w, t.Timestamped)
		return err
	case FormatSRT:
		for i, s := range t.Segments {
			if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1,
				cueTime(s.Start, ","), cueTime(s.End, ","), strings.TrimSpace(s.Text)); err != nil {
				return err
			}
		}
		return nil
	case FormatVTT:
		if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
			return err
		}
		for _, s := range t.Segments {
			if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
				cueTime(s.Start, "."), cueTime(s.End, "."), strings.TrimSpace(s.Text)); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		analysis := t.Analysis
		if analysis == nil {
			analysis = map[string]any{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exportJSON{Language: t.Language, Segments: t.Segments, Analysis: analysis})
	}
	return fmt.Errorf("export format %q: %w", format, ErrUnsupportedMedia)
}

// cueTime renders HH:MM:SS<sep>mmm.
func cueTime(sec float64, sep string) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms%1000)
}

// mkSessionDir creates session_<ts>-<rand>; the suffix keeps persists in
// the same second apart.
func mkSessionDir(outputsRoot string, now time.Time) (string, string, error) {
	sid := "session_" + now.Format("20060102-150405") + "-" + uuid.NewString()[:8]
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type PersistBundle struct {
	SessionID   string         `json:"session_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Result      *Transcription `json:"result"`
}

// Persist writes session_<ts>-<rand>/transcript.json plus the transcript in the
// requested export format, returning the session id and directory.
func (p *Pipeline) Persist(t *Transcription, format string) (string, string, error) {
	file, _, err := ExportName(format)
	if err != nil {
		return "", "", err
	}
	now := p.now()
	sid, dir, err := mkSessionDir(p.cfg.Paths.Outputs, now)
	if err != nil {
		return "", "", err
	}
	if err := writeJSON(filepath.Join(dir, "transcript.json"), PersistBundle{
		SessionID:   sid,
		GeneratedAt: now,
		Result:      t,
	}); err != nil {
		return "", "", err
	}
	if format == FormatJSON {
		return sid, dir, nil
	}

	f, err := os.Create(filepath.Join(dir, file))
	if err != nil {
		return "", "", err
	}
	if err := WriteTranscript(f, t, format); err != nil {
		f.Close()
		return "", "", err
	}
	return sid, dir, f.Close()
}
