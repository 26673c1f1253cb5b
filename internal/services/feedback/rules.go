package feedback

import (
	"context"
	"fmt"
	"sort"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/metrics"
)

const (
	highClarity       = 0.85
	lowClarity        = 0.75
	fillersPerMinute  = 2.0
	sustainedWordMark = 100
)

var (
	fallbackStrengths = []string{
		"You recorded a complete practice attempt.",
		"Your delivery produced a transcript clear enough to analyze.",
		"You are tracking your progress with measurable metrics.",
	}
	fallbackImprovements = []string{
		"Vary your vocal emphasis to highlight key points.",
		"Strengthen your opening so it grabs attention immediately.",
		"Make your closing line more memorable.",
	}
	fallbackRecommendations = []string{
		"Record another practice run and compare your metrics.",
		"Practice in front of a friend and ask for one specific piece of feedback.",
		"Mark the two most important sentences in your script and rehearse them aloud.",
	}
)

// RuleSynthesizer derives feedback from the metrics alone. It never fails
// and gives the same answer for the same input.
type RuleSynthesizer struct{}

// NewRuleSynthesizer creates a rule-based synthesizer
func NewRuleSynthesizer() *RuleSynthesizer {
	return &RuleSynthesizer{}
}

// Generate builds feedback from req.Metrics
func (s *RuleSynthesizer) Generate(ctx context.Context, req Request) (*models.Feedback, error) {
	m := req.Metrics
	band := metrics.AssessPacing(m.WordsPerMinute)
	totalFillers := m.TotalFillers()
	minutes := m.DurationSec / 60

	var strengths, improvements, recommendations []string
	issues := 0

	if band == metrics.PacingIdeal {
		strengths = append(strengths, fmt.Sprintf("Your speaking rate of %.0f words per minute is in the ideal range.", m.WordsPerMinute))
	} else {
		issues++
		improvements = append(improvements, band.Advice())
		recommendations = append(recommendations, "Rehearse with a timer and aim for 120 to 160 words per minute.")
	}

	if m.ClarityScore >= highClarity {
		strengths = append(strengths, fmt.Sprintf("Your words came through clearly (clarity %.2f).", m.ClarityScore))
	} else if m.ClarityScore < lowClarity {
		issues++
		improvements = append(improvements, fmt.Sprintf("Some words were hard to recognize (clarity %.2f).", m.ClarityScore))
		recommendations = append(recommendations, "Articulate word endings and slow down on longer words.")
	}

	if totalFillers == 0 || (minutes > 0 && float64(totalFillers)/minutes < fillersPerMinute) {
		strengths = append(strengths, "You kept filler words to a minimum.")
	} else {
		issues++
		improvements = append(improvements, fmt.Sprintf("You used %d filler words; the most frequent was %q.", totalFillers, topFiller(m.FillerWordCounts)))
		recommendations = append(recommendations, "Replace filler words with a short silent pause.")
	}

	if m.LongPauseCount > 0 {
		issues++
		improvements = append(improvements, fmt.Sprintf("%d pauses ran longer than two seconds.", m.LongPauseCount))
		recommendations = append(recommendations, "Outline your transitions in advance so you never search for the next point.")
	} else if len(m.Pauses) > 0 {
		strengths = append(strengths, "You used pauses without letting them drag on.")
	}

	if m.WordCount >= sustainedWordMark {
		strengths = append(strengths, fmt.Sprintf("You sustained your delivery across %d words.", m.WordCount))
	}

	fb := &models.Feedback{
		Strengths:         fill(strengths, fallbackStrengths),
		Improvements:      fill(improvements, fallbackImprovements),
		Recommendations:   fill(recommendations, fallbackRecommendations),
		OverallAssessment: overall(m, band, totalFillers, issues),
		Source:            SourceRules,
	}
	return fb, nil
}

func overall(m models.Metrics, band metrics.PacingBand, fillers, issues int) string {
	var verdict string
	switch {
	case issues == 0:
		verdict = "Strong delivery."
	case issues <= 2:
		verdict = "Solid delivery with a few areas to polish."
	default:
		verdict = "A good starting point with several areas to work on."
	}
	return fmt.Sprintf("%s Pace %.0f wpm (%s), clarity %.2f, %d filler words, %d long pauses.",
		verdict, m.WordsPerMinute, band, m.ClarityScore, fillers, m.LongPauseCount)
}

// fill returns exactly ItemsPerList entries, topping up from fallback.
func fill(items, fallback []string) []string {
	out := make([]string, 0, ItemsPerList)
	out = append(out, items...)
	for _, f := range fallback {
		if len(out) >= ItemsPerList {
			break
		}
		out = append(out, f)
	}
	return out[:ItemsPerList]
}

// topFiller picks the most frequent filler, alphabetically first on ties.
func topFiller(counts map[string][]models.FillerOccurrence) string {
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Strings(words)

	best := ""
	for _, w := range words {
		if best == "" || len(counts[w]) > len(counts[best]) {
			best = w
		}
	}
	return best
}
