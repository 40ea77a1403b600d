package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/voicevision/voicevision/clients"
)

// VideoID extracts the video id from a watch URL (the text after the last
// "v=" up to the next "&") or a youtu.be short link.
func VideoID(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", ErrEmptyInput
	}
	var id string
	if i := strings.LastIndex(s, "v="); i >= 0 {
		id = s[i+2:]
	} else if u, err := url.Parse(s); err == nil && strings.HasSuffix(u.Host, "youtu.be") {
		id = strings.Trim(u.Path, "/")
	} else {
		id = s
	}
	if i := strings.IndexAny(id, "&?#"); i >= 0 {
		id = id[:i]
	}
	if id == "" || strings.ContainsAny(id, "/ ") {
		return "", fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	return id, nil
}

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// FormatISODuration turns "PT1H2M3S" into "1h 2m 3s".
func FormatISODuration(iso string) string {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil {
		return "Unknown duration"
	}
	var parts []string
	for i, unit := range []string{"h", "m", "s"} {
		if m[i+1] != "" {
			parts = append(parts, m[i+1]+unit)
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, {0x1F300, 0x1F5FF}, {0x1F680, 0x1F6FF}, {0x1F700, 0x1F77F},
	{0x1F780, 0x1F7FF}, {0x1F800, 0x1F8FF}, {0x1F900, 0x1F9FF}, {0x1FA00, 0x1FA6F},
	{0x1FA70, 0x1FAFF}, {0x2702, 0x27B0}, {0x1F004, 0x1F0CF}, {0x2B06, 0x2B07},
	{0x25AA, 0x25AB}, {0x1F1E6, 0x1F1FF}, {0x2B50, 0x2B50},
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

func RemoveEmojis(s string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, s)
}

var unsafeFileChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

func SanitizeFilename(name string) string {
	return unsafeFileChars.Replace(name)
}

var (
	positiveWords = map[string]bool{"good": true, "great": true, "excellent": true, "amazing": true, "wonderful": true, "happy": true, "love": true}
	negativeWords = map[string]bool{"bad": true, "terrible": true, "awful": true, "horrible": true, "worst": true, "sad": true, "hate": true}
)

// Sentiment counts positive against negative words among alphabetic tokens.
func Sentiment(text string) string {
	pos, neg := 0, 0
	for _, w := range wordTokens(text) {
		if !isAlpha(w) {
			continue
		}
		w = strings.ToLower(w)
		switch {
		case positiveWords[w]:
			pos++
		case negativeWords[w]:
			neg++
		}
	}
	switch {
	case pos > neg:
		return "Positive"
	case neg > pos:
		return "Negative"
	default:
		return "Neutral"
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// secs prints a float the way the transcript lines always have: integral
// values keep one decimal.
func secs(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func captionLines(caps []clients.Caption) ([]string, string) {
	lines := make([]string, len(caps))
	texts := make([]string, len(caps))
	for i, c := range caps {
		lines[i] = fmt.Sprintf("%ss - %ss: %s", secs(c.Start), secs(c.Start+c.Duration), c.Text)
		texts[i] = c.Text
	}
	return lines, strings.Join(texts, " ")
}

// AnalyzeVideo gathers details, transcript, sentiment and a spoken summary
// for a video URL. A missing transcript is reported in TranscriptError and
// does not fail the call.
func (p *Pipeline) AnalyzeVideo(ctx context.Context, rawURL string) (v *VideoAnalysis, err error) {
	defer func() { p.record("youtube", err) }()
	id, err := VideoID(rawURL)
	if err != nil {
		return nil, err
	}

	yt := p.cfg.Services.YouTube
	det, err := p.http.VideoDetails(ctx, yt.URL, yt.Token, id)
	if err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}
	title := RemoveEmojis(det.Title)
	v = &VideoAnalysis{
		ID:           id,
		Title:        title,
		Thumbnail:    det.Thumbnail,
		Duration:     FormatISODuration(det.Duration),
		Sentiment:    "Neutral",
		Summary:      "The video is about " + title,
		DownloadName: SanitizeFilename(det.Title) + "_transcript.txt",
	}

	caps, err := p.http.Captions(ctx, p.cfg.Services.Transcript.URL, id, "en")
	switch {
	case err == nil:
		v.Transcript, v.FullText = captionLines(caps)
		v.Sentiment = Sentiment(v.FullText)
	case errors.Is(err, context.Canceled):
		return nil, err
	default:
		v.TranscriptError = "Error: " + err.Error()
		p.log.WithError(err).WithField("video", id).Warn("transcript unavailable")
	}

	if mp3, err := p.http.Speak(ctx, p.cfg.Services.TTS.URL, v.Summary, "en"); err == nil {
		v.SummaryAudio = mp3
	} else {
		p.log.WithError(err).Debug("summary audio failed")
	}
	return v, nil
}

// TranscriptText is the downloadable transcript body.
func (v *VideoAnalysis) TranscriptText() string {
	return strings.Join(v.Transcript, "\n")
}
