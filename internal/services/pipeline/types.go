package pipeline

import (
	"context"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/similarity"
)

// EmptyTranscriptMessage is recorded when transcription yields no words.
const EmptyTranscriptMessage = "No transcript generated"

// CreateRequest is the input of CreateRecording
type CreateRequest struct {
	AudioRef string `json:"audio_ref" binding:"required"`
	Title    string `json:"title,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Status is the pollable view of a recording
type Status struct {
	ID           string       `json:"id"`
	Stage        models.Stage `json:"stage"`
	ErrorMessage string       `json:"error_message,omitempty"`
	FailedStage  string       `json:"failed_stage,omitempty"`
	Generation   int          `json:"generation"`
	Artifacts    Artifacts    `json:"artifacts"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Artifacts reports which stage outputs are stored
type Artifacts struct {
	Transcript bool `json:"transcript"`
	Metrics    bool `json:"metrics"`
	Embedding  bool `json:"embedding"`
	Feedback   bool `json:"feedback"`
}

// Analysis is the result view of a recording. Metrics, feedback and similar
// exemplars are only filled once the recording is completed.
type Analysis struct {
	ID               string            `json:"id"`
	Stage            models.Stage      `json:"stage"`
	Transcript       string            `json:"transcript,omitempty"`
	Metrics          *models.Metrics   `json:"metrics,omitempty"`
	PacingAdvice     string            `json:"pacing_advice,omitempty"`
	Feedback         *models.Feedback  `json:"feedback,omitempty"`
	SimilarExemplars []SimilarExemplar `json:"similar_exemplars,omitempty"`
}

// SimilarExemplar is a ranked exemplar without its embedding
type SimilarExemplar struct {
	ID          string  `json:"id"`
	SpeakerName string  `json:"speaker_name"`
	Title       string  `json:"title"`
	Category    string  `json:"category,omitempty"`
	Occasion    string  `json:"occasion,omitempty"`
	Score       float64 `json:"score"`
}

func toSimilar(matches []similarity.Match) []SimilarExemplar {
	out := make([]SimilarExemplar, len(matches))
	for i, m := range matches {
		out[i] = SimilarExemplar{
			ID:          m.Exemplar.ID,
			SpeakerName: m.Exemplar.SpeakerName,
			Title:       m.Exemplar.Title,
			Category:    m.Exemplar.Category,
			Occasion:    m.Exemplar.Occasion,
			Score:       m.Score,
		}
	}
	return out
}

func toStatus(rec *models.Recording) *Status {
	return &Status{
		ID:           rec.ID,
		Stage:        rec.Stage,
		ErrorMessage: rec.ErrorMessage,
		FailedStage:  rec.FailedStage,
		Generation:   rec.Generation,
		Artifacts: Artifacts{
			Transcript: rec.HasTranscript(),
			Metrics:    rec.HasMetrics(),
			Embedding:  rec.HasEmbedding(),
			Feedback:   rec.HasFeedback(),
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// ExemplarSource supplies the similarity corpus
type ExemplarSource interface {
	ListSearchable(ctx context.Context) ([]models.Exemplar, error)
}

// Options tune the scheduler
type Options struct {
	// SimilarLimit is the number of exemplars returned by GetAnalysis when
	// the caller does not ask for a specific count.
	SimilarLimit   int
	EnableFeedback bool
}
