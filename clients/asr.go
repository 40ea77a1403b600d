package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type TransSeg struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ASRResp struct {
	Text     string     `json:"text"`
	Language string     `json:"language"`
	Duration float64    `json:"duration,omitempty"`
	Segments []TransSeg `json:"segments"`
}

// joined fills Text from the segments when the service only sent those.
func (r *ASRResp) joined() {
	if strings.TrimSpace(r.Text) != "" || len(r.Segments) == 0 {
		return
	}
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	r.Text = strings.Join(parts, " ")
}

// ASR uploads an audio file to the recognition service. language is an
// optional ISO-639-1 hint; empty lets the service detect it. The file is
// streamed, never held in memory.
func (h *HTTP) ASR(ctx context.Context, url, audioPath, language string) (*ASRResp, error) {
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeASRForm(mw, fd, filepath.Base(audioPath), language))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/transcribe", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.send(ctx, ServiceASR, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("asr", resp)
	}

	var out ASRResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("asr decode: %w", err)
	}
	out.joined()
	return &out, nil
}

func writeASRForm(mw *multipart.Writer, src io.Reader, name, language string) error {
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, src); err != nil {
		return err
	}
	return mw.Close()
}
