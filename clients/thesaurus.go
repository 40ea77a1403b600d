package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Relation codes understood by the thesaurus service.
const (
	RelSynonym = "syn"
	RelAntonym = "ant"
)

type relatedWord struct {
	Word  string `json:"word"`
	Score int    `json:"score"`
}

// Related returns up to max words related to word by rel.
func (h *HTTP) Related(ctx context.Context, baseURL, rel, word string, max int) ([]string, error) {
	q := url.Values{}
	q.Set("rel_"+rel, word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/words?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.send(ctx, ServiceThesaurus, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("thesaurus", resp)
	}

	var words []relatedWord
	if err := json.NewDecoder(resp.Body).Decode(&words); err != nil {
		return nil, fmt.Errorf("thesaurus decode: %w", err)
	}
	if max > 0 && len(words) > max {
		words = words[:max]
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, w.Word)
	}
	return out, nil
}
