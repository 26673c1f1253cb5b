package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/logger"
)

// ItemsPerList is the number of strengths, improvements and recommendations
// every synthesizer returns.
const ItemsPerList = 3

// Feedback sources
const (
	SourceOpenAI = "openai"
	SourceRules  = "rules"
)

// Request is the input to feedback generation
type Request struct {
	Transcript     string
	Metrics        models.Metrics
	MetricsSummary string
}

// Synthesizer produces qualitative coaching feedback
type Synthesizer interface {
	Generate(ctx context.Context, req Request) (*models.Feedback, error)
}

// New picks the synthesizer for cfg. Without an API key the rule-based
// synthesizer is used regardless of the configured provider.
func New(cfg config.FeedbackConfig) Synthesizer {
	if cfg.Provider == SourceRules || cfg.OpenAIAPIKey == "" {
		if cfg.Provider != SourceRules {
			logger.WithComponent("feedback").Warn("No OpenAI API key configured, using rule-based feedback")
		}
		return NewRuleSynthesizer()
	}
	return NewOpenAISynthesizer(cfg)
}

// normalize trims every list to exactly ItemsPerList non-empty entries.
func normalize(fb *models.Feedback) error {
	var err error
	if fb.Strengths, err = exactly("strengths", fb.Strengths); err != nil {
		return err
	}
	if fb.Improvements, err = exactly("improvements", fb.Improvements); err != nil {
		return err
	}
	if fb.Recommendations, err = exactly("recommendations", fb.Recommendations); err != nil {
		return err
	}
	fb.OverallAssessment = strings.TrimSpace(fb.OverallAssessment)
	if fb.OverallAssessment == "" {
		return fmt.Errorf("feedback is missing overall_assessment")
	}
	return nil
}

func exactly(name string, items []string) ([]string, error) {
	out := make([]string, 0, ItemsPerList)
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
		if len(out) == ItemsPerList {
			break
		}
	}
	if len(out) < ItemsPerList {
		return nil, fmt.Errorf("feedback has %d %s, want %d", len(out), name, ItemsPerList)
	}
	return out, nil
}
