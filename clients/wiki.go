package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

type pageSummary struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Summary fetches the lead section of an encyclopedia page, cut to the first
// n sentences. Missing and disambiguation pages yield ErrNotFound.
func (h *HTTP) Summary(ctx context.Context, baseURL, title string, sentences int) (string, error) {
	path := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/page/summary/"+path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.send(ctx, ServiceWikipedia, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("page %q: %w", title, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", statusError("wikipedia", resp)
	}

	var ps pageSummary
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return "", fmt.Errorf("wikipedia decode: %w", err)
	}
	if ps.Type == "disambiguation" || strings.TrimSpace(ps.Extract) == "" {
		return "", fmt.Errorf("page %q: %w", title, ErrNotFound)
	}
	return FirstSentences(ps.Extract, sentences), nil
}

// FirstSentences keeps the first n sentences of text. n <= 0 keeps all.
func FirstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 {
		return text
	}
	rs := []rune(text)
	count := 0
	for i, r := range rs {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			continue
		}
		count++
		if count == n {
			return string(rs[:i+1])
		}
	}
	return text
}
