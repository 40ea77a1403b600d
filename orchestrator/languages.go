package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// Translator page languages; codes are the translation service's.
var translatorLanguages = map[string]string{
	"en": "English", "hi": "Hindi", "fr": "French", "de": "German",
	"es": "Spanish", "it": "Italian", "zh-cn": "Chinese", "ja": "Japanese",
	"ko": "Korean", "ar": "Arabic", "ru": "Russian", "te": "Telugu",
	"ta": "Tamil", "bn": "Bengali", "pa": "Punjabi", "gu": "Gujarati", "kn": "Kannada",
}

// Recogniser language codes differ from the translator's only for Chinese.
var speechLanguages = map[string]string{
	"en": "English", "hi": "Hindi", "fr": "French", "de": "German",
	"es": "Spanish", "it": "Italian", "zh": "Chinese", "ja": "Japanese",
	"ko": "Korean", "ar": "Arabic", "ru": "Russian", "te": "Telugu",
	"ta": "Tamil", "bn": "Bengali", "pa": "Punjabi", "gu": "Gujarati", "kn": "Kannada",
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the translator languages sorted by name.
func Languages() []Language {
	out := make([]Language, 0, len(translatorLanguages))
	for code, name := range translatorLanguages {
		out = append(out, Language{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LanguageCode resolves a translator language name, case-insensitively.
func LanguageCode(name string) (string, error) {
	for code, n := range translatorLanguages {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownLanguage)
}

func LanguageName(code string) (string, bool) {
	n, ok := translatorLanguages[code]
	return n, ok
}

// SpeechLanguageName names a detected recognition language; unknown codes
// are returned unchanged.
func SpeechLanguageName(code string) string {
	if n, ok := speechLanguages[code]; ok {
		return n
	}
	return code
}

// speechCode maps a translator code to the recogniser's.
func speechCode(code string) string {
	if code == "zh-cn" {
		return "zh"
	}
	return code
}
