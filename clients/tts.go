package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ttsMaxChars is the longest text the speech endpoint accepts per request.
const ttsMaxChars = 100

var ErrEmptyText = errors.New("no text to speak")

// Speak converts text to MP3 audio. Long text is split into chunks the
// endpoint accepts and the returned MP3 streams are concatenated.
func (h *HTTP) Speak(ctx context.Context, baseURL, text, lang string) ([]byte, error) {
	chunks := SplitForSpeech(text, ttsMaxChars)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}
	if lang == "" {
		lang = "en"
	}

	var out bytes.Buffer
	for i, chunk := range chunks {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", lang)
		q.Set("q", chunk)
		q.Set("total", strconv.Itoa(len(chunks)))
		q.Set("idx", strconv.Itoa(i))
		q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/translate_tts?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := h.send(ctx, ServiceTTS, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			err = statusError("tts", resp)
			resp.Body.Close()
			return nil, err
		}
		_, err = io.Copy(&out, resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

// SplitForSpeech breaks text into pieces of at most max runes, preferring
// punctuation boundaries, then word boundaries, then hard cuts.
func SplitForSpeech(text string, max int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var pieces []string
	for _, clause := range splitClauses(text) {
		if utf8.RuneCountInString(clause) <= max {
			pieces = append(pieces, clause)
			continue
		}
		pieces = append(pieces, splitWords(clause, max)...)
	}

	// merge short neighbours back up to the limit
	var out []string
	cur := ""
	for _, p := range pieces {
		switch {
		case cur == "":
			cur = p
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(p) <= max:
			cur += " " + p
		default:
			out = append(out, cur)
			cur = p
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func splitClauses(text string) []string {
	var out []string
	start := 0
	rs := []rune(text)
	for i, r := range rs {
		if strings.ContainsRune(".!?;:,…。！？", r) && (i+1 == len(rs) || unicode.IsSpace(rs[i+1])) {
			if s := strings.TrimSpace(string(rs[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(rs[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func splitWords(clause string, max int) []string {
	var out []string
	cur := ""
	for _, w := range strings.Fields(clause) {
		for utf8.RuneCountInString(w) > max {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			rs := []rune(w)
			out = append(out, string(rs[:max]))
			w = string(rs[max:])
		}
		switch {
		case w == "":
		case cur == "":
			cur = w
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= max:
			cur += " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
