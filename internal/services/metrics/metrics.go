// Package metrics computes delivery measurements from word-level transcripts.
// Every function is pure and deterministic.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/killallgit/speech-coach/internal/models"
)

const (
	// PauseThresholdSec is the minimum gap, exclusive, that counts as a pause.
	PauseThresholdSec = 1.0
	// LongPauseThresholdSec is the gap, exclusive, reported as a long pause in summaries.
	LongPauseThresholdSec = 2.0
)

// fillerWords is matched case-insensitively after trimming punctuation.
var fillerWords = map[string]bool{
	"um":   true,
	"uh":   true,
	"like": true,
	"so":   true,
}

// fillerBigrams are two-word fillers keyed by their first word.
var fillerBigrams = map[string]string{
	"you": "know",
}

// FillerVocabulary returns the filler terms the extractor recognizes.
func FillerVocabulary() []string {
	return []string{"um", "uh", "like", "you know", "so"}
}

// Extract computes the full metric set. durationSec is the audio length;
// when it is not positive the end time of the last word is used instead.
func Extract(words []models.Word, durationSec float64) models.Metrics {
	duration := EffectiveDuration(words, durationSec)
	wpm := WordsPerMinute(len(words), duration)
	pauses := DetectPauses(words)

	return models.Metrics{
		WordsPerMinute:   wpm,
		WordCount:        len(words),
		DurationSec:      duration,
		Pauses:           pauses,
		LongPauseCount:   len(LongPauses(pauses)),
		FillerWordCounts: CountFillers(words),
		ClarityScore:     ClarityScore(words),
		PacingAssessment: string(AssessPacing(wpm)),
	}
}

// EffectiveDuration picks the provided duration or derives one from word timings.
func EffectiveDuration(words []models.Word, durationSec float64) float64 {
	if durationSec > 0 {
		return durationSec
	}
	if len(words) == 0 {
		return 0
	}
	return words[len(words)-1].End
}

// WordsPerMinute is wordCount / (durationSec / 60), or 0 for a non-positive duration.
func WordsPerMinute(wordCount int, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0
	}
	return float64(wordCount) / (durationSec / 60)
}

// DetectPauses emits one pause per adjacent word gap strictly greater than
// PauseThresholdSec, timestamped at the end of the earlier word.
func DetectPauses(words []models.Word) []models.Pause {
	pauses := make([]models.Pause, 0)
	for i := 0; i+1 < len(words); i++ {
		gap := words[i+1].Start - words[i].End
		if gap > PauseThresholdSec {
			pauses = append(pauses, models.Pause{
				TimestampSec: words[i].End,
				DurationSec:  gap,
			})
		}
	}
	return pauses
}

// LongPauses filters pauses strictly longer than LongPauseThresholdSec.
func LongPauses(pauses []models.Pause) []models.Pause {
	long := make([]models.Pause, 0)
	for _, p := range pauses {
		if p.DurationSec > LongPauseThresholdSec {
			long = append(long, p)
		}
	}
	return long
}

// CountFillers records every filler occurrence keyed by the normalized filler.
// "you know" is matched as two adjacent words and reported at the first word.
func CountFillers(words []models.Word) map[string][]models.FillerOccurrence {
	counts := make(map[string][]models.FillerOccurrence)
	for i := 0; i < len(words); i++ {
		w := normalize(words[i].Text)
		if second, ok := fillerBigrams[w]; ok && i+1 < len(words) && normalize(words[i+1].Text) == second {
			key := w + " " + second
			counts[key] = append(counts[key], models.FillerOccurrence{
				TimestampSec: words[i].Start,
				Confidence:   words[i].Confidence,
			})
			i++
			continue
		}
		if fillerWords[w] {
			counts[w] = append(counts[w], models.FillerOccurrence{
				TimestampSec: words[i].Start,
				Confidence:   words[i].Confidence,
			})
		}
	}
	return counts
}

// ClarityScore is the mean word confidence, 0 for an empty transcript.
func ClarityScore(words []models.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

// Summarize renders metrics as the plain-text block sent to feedback generation.
func Summarize(m models.Metrics) string {
	var b strings.Builder
	band := AssessPacing(m.WordsPerMinute)
	fmt.Fprintf(&b, "Speaking rate: %.1f words per minute (%s). %s\n", m.WordsPerMinute, band, band.Advice())
	fmt.Fprintf(&b, "Word count: %d over %.1f seconds\n", m.WordCount, m.DurationSec)
	fmt.Fprintf(&b, "Pauses over %.0fs: %d, of which longer than %.0fs: %d\n",
		PauseThresholdSec, len(m.Pauses), LongPauseThresholdSec, m.LongPauseCount)

	if total := m.TotalFillers(); total > 0 {
		keys := make([]string, 0, len(m.FillerWordCounts))
		for k := range m.FillerWordCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%q x%d", k, len(m.FillerWordCounts[k])))
		}
		fmt.Fprintf(&b, "Filler words: %d (%s)\n", total, strings.Join(parts, ", "))
	} else {
		b.WriteString("Filler words: none\n")
	}

	fmt.Fprintf(&b, "Clarity score: %.2f", m.ClarityScore)
	return b.String()
}
