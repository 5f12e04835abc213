// Package quality scores extracted text so callers can judge whether an
// extraction produced readable prose or page debris.
package quality

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Metrics summarizes text quality on normalized 0-1 scales, except
// CharacterLength which is the raw rune-independent byte length.
type Metrics struct {
	CharacterLength int     `json:"character_length"`
	WordCount       int     `json:"word_count"`
	SentenceCount   int     `json:"sentence_count"`
	ParagraphCount  int     `json:"paragraph_count"`
	Readability     float64 `json:"readability_score"`
	Diversity       float64 `json:"diversity_score"`
	Structure       float64 `json:"structure_score"`
	NoiseCoherence  float64 `json:"noise_coherence_score"`
	ErrorIndicator  float64 `json:"error_indicator_score"`
	Overall         float64 `json:"overall_quality_score"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
}

// LooksLikeErrorPage reports whether the metrics resemble an error or
// challenge page rather than article content.
func (m *Metrics) LooksLikeErrorPage() bool {
	return m.ErrorIndicator >= 0.5
}

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+\s+`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	multiPunct     = regexp.MustCompile(`[!?]{2,}|\.{3,}`)
)

var errorTokens = []string{
	"404", "not found", "error", "forbidden", "access denied",
	"server error", "bad request", "unauthorized", "timeout",
	"cloudflare", "ray id", "blocked", "captcha",
}

// Compute derives quality metrics from extracted text. Empty input
// yields zeroed metrics.
func Compute(text string) *Metrics {
	text = strings.TrimSpace(text)
	m := &Metrics{}
	if text == "" {
		return m
	}

	words := strings.Fields(text)
	sentences := splitNonEmpty(sentenceSplit, text)
	paragraphs := splitNonEmpty(paragraphSplit, text)

	m.CharacterLength = len(text)
	m.WordCount = len(words)
	m.SentenceCount = len(sentences)
	m.ParagraphCount = len(paragraphs)
	m.PrintableRatio = printableRatio(text)
	m.WordlikeRatio = wordlikeRatio(words)
	if m.WordCount == 0 {
		return m
	}

	m.Readability = readabilityScore(words, sentences)
	m.Diversity = diversityScore(words)
	m.Structure = structureScore(text, words, sentences, paragraphs)

	coherence := coherenceScore(sentences)
	noisePenalty := noisePenalty(text, words)
	m.NoiseCoherence = clamp01((coherence + (1 - noisePenalty)) / 2)
	m.ErrorIndicator = errorIndicatorScore(text, coherence)

	m.Overall = clamp01(
		m.Readability*0.25 +
			m.Diversity*0.20 +
			m.Structure*0.25 +
			m.NoiseCoherence*0.20 -
			m.ErrorIndicator*0.10)
	return m
}

func splitNonEmpty(re *regexp.Regexp, text string) []string {
	parts := re.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readabilityScore normalizes a Flesch Reading Ease variant tuned for
// German text to 0-1.
func readabilityScore(words, sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	avgSentenceLen := float64(len(words)) / float64(len(sentences))

	totalSyllables := 0
	for _, w := range words {
		totalSyllables += countSyllables(w)
	}
	avgSyllables := float64(totalSyllables) / float64(len(words))

	flesch := 180 - avgSentenceLen - 58.5*avgSyllables
	return clamp01(flesch / 100)
}

// countSyllables estimates syllables with a vowel-group heuristic that
// handles German umlauts and trailing silent e.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouäöü", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// diversityScore blends type-token ratio with Shannon entropy of the
// word distribution.
func diversityScore(words []string) float64 {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[strings.ToLower(w)]++
	}
	n := float64(len(words))
	ttr := float64(len(freq)) / n

	entropy := 0.0
	for _, c := range freq {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return clamp01((ttr + math.Min(entropy/5, 1)) / 2)
}

func structureScore(text string, words, sentences, paragraphs []string) float64 {
	wordCount := len(words)
	paragraphCount := len(paragraphs)

	avgParagraphLen := 0.0
	if paragraphCount > 0 {
		avgParagraphLen = float64(wordCount) / float64(paragraphCount)
	}

	variance := sentenceLengthVariance(sentences)
	goodStructure := paragraphCount >= 2 &&
		avgParagraphLen > 10 && avgParagraphLen < 200 &&
		variance < 100

	headings := countHeadings(text)
	headingRatio := float64(headings) / float64(wordCount)

	base := 0.3
	if goodStructure {
		base = 0.8
	}
	bonus := math.Min(0.2, headingRatio*10)
	penalty := math.Min(0.3, variance/1000)
	return clamp01(base + bonus - penalty)
}

func sentenceLengthVariance(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}
	lengths := make([]float64, len(sentences))
	sum := 0.0
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))
	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	return variance / float64(len(lengths))
}

var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-ZÄÖÜ][^.!?]*$`),
	regexp.MustCompile(`^\d+\.?\s+[A-ZÄÖÜ]`),
	regexp.MustCompile(`^[IVX]+\.?\s+[A-ZÄÖÜ]`),
}

func countHeadings(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, pat := range headingPatterns {
			if pat.MatchString(line) {
				count++
				break
			}
		}
	}
	return count
}

// noisePenalty averages non-letter, caps, and repetition ratios into a
// 0-1 penalty.
func noisePenalty(text string, words []string) float64 {
	total := float64(len(text))
	letters, caps := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
		}
		if unicode.IsUpper(r) {
			caps++
		}
	}
	nonLetterRatio := (total - float64(letters)) / total
	capsRatio := float64(caps) / total

	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[strings.ToLower(w)]++
	}
	repeated := 0
	for _, c := range freq {
		if c > 1 {
			repeated += c - 1
		}
	}
	repetitionRatio := float64(repeated) / float64(len(words))

	return math.Min(1, (nonLetterRatio+capsRatio+repetitionRatio)/3)
}

// coherenceScore measures Jaccard overlap between adjacent sentences.
func coherenceScore(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}
	totalOverlap := 0.0
	comparisons := 0
	for i := 0; i < len(sentences)-1; i++ {
		a := wordSet(sentences[i])
		b := wordSet(sentences[i+1])
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		inter, union := 0, len(b)
		for w := range a {
			if _, ok := b[w]; ok {
				inter++
			} else {
				union++
			}
		}
		totalOverlap += float64(inter) / float64(union)
		comparisons++
	}
	if comparisons == 0 {
		return 0
	}
	return math.Min(1, totalOverlap/float64(comparisons)*2)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func errorIndicatorScore(text string, coherence float64) float64 {
	score := 0.0
	lower := strings.ToLower(text)

	matches := 0
	for _, tok := range errorTokens {
		if strings.Contains(lower, tok) {
			matches++
		}
	}
	if matches > 0 {
		score += math.Min(0.4, float64(matches)*0.1)
		if len(text) < 100 {
			score += 0.4
		}
	}
	if specialCharRatio(text) > 0.3 {
		score += 0.3
	}
	if len(multiPunct.FindAllString(text, -1)) > 5 {
		score += 0.2
	}
	if coherence < 0.2 {
		score += 0.3
	}
	return math.Min(1, score)
}

func specialCharRatio(text string) float64 {
	if text == "" {
		return 0
	}
	special := 0
	total := 0
	for _, r := range text {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	return float64(special) / float64(total)
}

// printableRatio returns the share of printable characters, excluding
// Private Use Area runes, control characters, and U+FFFD.
func printableRatio(text string) float64 {
	if text == "" {
		return 1
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio returns the share of tokens with plausible word length.
func wordlikeRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	wordlike := 0
	for _, w := range words {
		n := len([]rune(w))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(words))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
