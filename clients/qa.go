package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// --- Hosted text generation ---
type GenerateReq struct {
	Inputs string `json:"inputs"`
}

type genResp struct {
	GeneratedText *string `json:"generated_text"`
}

const NoResponse = "No response."

// Generate posts a prompt to a hosted inference endpoint. The endpoint
// answers either with a list of generations or a single object; the first
// generated_text wins.
func (h *HTTP) Generate(ctx context.Context, url, token, prompt string) (string, error) {
	b, _ := json.Marshal(GenerateReq{Inputs: prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.send(ctx, ServiceQA, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("qa", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	body = bytes.TrimSpace(body)

	var g genResp
	if len(body) > 0 && body[0] == '[' {
		var list []genResp
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("qa decode: %w", err)
		}
		if len(list) > 0 {
			g = list[0]
		}
	} else if err := json.Unmarshal(body, &g); err != nil {
		return "", fmt.Errorf("qa decode: %w", err)
	}
	if g.GeneratedText == nil {
		return NoResponse, nil
	}
	return *g.GeneratedText, nil
}
