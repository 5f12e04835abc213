// Package lang detects the language of extracted text.
package lang

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Unknown is returned when no language can be determined with confidence.
const Unknown = "unknown"

// sampleLimit bounds the text fed to the detector; long documents gain
// nothing past the first few kilobytes.
const sampleLimit = 4096

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func sharedDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.German, lingua.English, lingua.French,
				lingua.Spanish, lingua.Italian, lingua.Dutch,
				lingua.Portuguese, lingua.Polish, lingua.Russian,
			).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code of the text's language, or Unknown
// when the text is too short or ambiguous.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < 20 {
		return Unknown
	}
	if len(text) > sampleLimit {
		text = text[:sampleLimit]
	}
	language, ok := sharedDetector().DetectLanguageOf(text)
	if !ok {
		return Unknown
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
