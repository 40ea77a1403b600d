package clients

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// --- Video details (/videos) ---
type VideoDetails struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"` // ISO-8601, e.g. PT4M13S
}

type videosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (h *HTTP) VideoDetails(ctx context.Context, baseURL, apiKey, id string) (*VideoDetails, error) {
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("id", id)
	q.Set("key", apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.send(ctx, ServiceYouTube, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("youtube", resp)
	}

	var out videosResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("youtube decode: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	it := out.Items[0]
	thumb := it.Snippet.Thumbnails["high"].URL
	if thumb == "" {
		thumb = it.Snippet.Thumbnails["default"].URL
	}
	return &VideoDetails{
		ID:        id,
		Title:     it.Snippet.Title,
		Thumbnail: thumb,
		Duration:  it.ContentDetails.Duration,
	}, nil
}

// --- Captions (/api/timedtext) ---
type Caption struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

func (h *HTTP) Captions(ctx context.Context, baseURL, id, lang string) ([]Caption, error) {
	if lang == "" {
		lang = "en"
	}
	q := url.Values{}
	q.Set("v", id)
	q.Set("lang", lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/timedtext?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.send(ctx, ServiceTranscript, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("captions %s: %w", id, ErrNoCaptions)
	case resp.StatusCode != http.StatusOK:
		return nil, statusError("captions", resp)
	}

	var tt timedText
	if err := xml.NewDecoder(resp.Body).Decode(&tt); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("captions %s: %w", id, ErrNoCaptions)
		}
		return nil, fmt.Errorf("captions decode: %w", err)
	}
	if len(tt.Texts) == 0 {
		return nil, fmt.Errorf("captions %s: %w", id, ErrNoCaptions)
	}

	out := make([]Caption, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		// caption bodies arrive entity-escaped once more inside the XML text
		text := html.UnescapeString(t.Body)
		text = strings.Join(strings.Fields(text), " ")
		out = append(out, Caption{Start: t.Start, Duration: t.Dur, Text: text})
	}
	return out, nil
}
