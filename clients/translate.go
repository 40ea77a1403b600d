package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// --- Translation (/translate) ---
type TranslateReq struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type TranslateResp struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
}

// Translate sends text to a LibreTranslate-compatible endpoint. source may be
// "auto".
func (h *HTTP) Translate(ctx context.Context, url, apiKey, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}
	b, _ := json.Marshal(TranslateReq{Q: text, Source: source, Target: target, Format: "text", APIKey: apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/translate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.send(ctx, ServiceTranslate, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("translate", resp)
	}

	var out TranslateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate decode: %w", err)
	}
	return out.TranslatedText, nil
}
