package orchestrator

import "github.com/voicevision/voicevision/audio"

type Segment struct {
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
	Text  string  `json:"text"`
}

// Options selects the optional analyses of a transcription.
type Options struct {
	Speakers  bool   `json:"speakers"`
	Gender    bool   `json:"gender"`
	Keywords  bool   `json:"keywords"`
	Visualize bool   `json:"visualize"`
	Language  string `json:"language,omitempty"` // recognition hint, code
}

type Stats struct {
	TotalDuration  string `json:"Total Duration"`
	SpeechDuration string `json:"Speech Duration"`
	Words          int    `json:"Words"`
	WordsPerMinute int    `json:"Words per Minute"`
	Segments       int    `json:"Segments"`
}

type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

const (
	AnalysisSpeakers = "Number of Speakers"
	AnalysisGender   = "Dominant Speaker Gender"
	DetectionFailed  = "Detection failed"
)

type Transcription struct {
	Source         string         `json:"source,omitempty"`
	Text           string         `json:"text"`
	Language       string         `json:"language"`
	Segments       []Segment      `json:"segments"`
	Timestamped    string         `json:"timestamped"`
	Analysis       map[string]any `json:"analysis,omitempty"`
	Stats          *Stats         `json:"stats,omitempty"`
	Keywords       []Keyword      `json:"keywords,omitempty"`
	Visualization  *audio.Visual  `json:"visualization,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	ProcessingTime float64        `json:"processing_time"` // sec
}

// HistoryEntry is one translation as shown in the history panel.
type HistoryEntry struct {
	Timestamp      string `json:"timestamp"`
	SourceLanguage string `json:"source_language"`
	SourceText     string `json:"source_text"`
	TargetLanguage string `json:"target_language"`
	TranslatedText string `json:"translated_text"`
}

// DownloadName is the file name offered for the translated text.
func (h HistoryEntry) DownloadName() string {
	return "translation_" + h.TargetLanguage + ".txt"
}

type VideoAnalysis struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Thumbnail       string   `json:"thumbnail"`
	Duration        string   `json:"duration"`
	Transcript      []string `json:"transcript,omitempty"`
	FullText        string   `json:"full_text,omitempty"`
	TranscriptError string   `json:"transcript_error,omitempty"`
	Sentiment       string   `json:"sentiment"`
	Summary         string   `json:"summary"`
	SummaryAudio    []byte   `json:"summary_audio,omitempty"`
	DownloadName    string   `json:"download_name"`
}

type Document struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // PDF, Text, Audio, Video
	Text string `json:"text"`
}

type WordReport struct {
	Word     string   `json:"word"`
	Display  string   `json:"display"`
	Synonyms []string `json:"synonyms"`
	Antonyms []string `json:"antonyms"`
	Examples []string `json:"examples"`
	Audio    []byte   `json:"audio,omitempty"`
}
