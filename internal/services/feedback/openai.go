package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

const systemPrompt = `You are an experienced public speaking coach.
Given a transcript of a practice speech and measured delivery metrics, reply with a JSON object:
{"strengths": [3 strings], "improvements": [3 strings], "recommendations": [3 strings], "overall_assessment": string}
Each list must contain exactly three short, specific items grounded in the metrics and transcript.`

// maxTranscriptBytes keeps prompts well inside the model context.
const maxTranscriptBytes = 12000

// OpenAISynthesizer generates feedback with a chat completion in JSON mode
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	log    *logrus.Entry
}

// NewOpenAISynthesizer creates a synthesizer from cfg
func NewOpenAISynthesizer(cfg config.FeedbackConfig) *OpenAISynthesizer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAISynthesizer{
		client: &client,
		model:  cfg.Model,
		log:    logger.WithComponent("feedback"),
	}
}

// Generate asks the model for feedback and validates the shape of the answer
func (s *OpenAISynthesizer) Generate(ctx context.Context, req Request) (*models.Feedback, error) {
	transcript := truncateTranscript(req.Transcript, maxTranscriptBytes)

	user := fmt.Sprintf("Delivery metrics:\n%s\n\nTranscript:\n%s", req.MetricsSummary, transcript)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("openai refused: %s", msg.Refusal)
	}

	var fb models.Feedback
	if err := json.Unmarshal([]byte(strings.TrimSpace(msg.Content)), &fb); err != nil {
		return nil, fmt.Errorf("decoding feedback: %w", err)
	}
	if err := normalize(&fb); err != nil {
		return nil, err
	}
	fb.Source = SourceOpenAI

	s.log.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Feedback generated")

	return &fb, nil
}

// truncateTranscript cuts s to at most limit bytes on a rune boundary
func truncateTranscript(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + " ..."
}
