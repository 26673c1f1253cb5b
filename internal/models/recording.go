package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Recording is a user-submitted speech moving through the analysis pipeline.
//
// Artifact columns (transcript, metrics, embedding, feedback) stay NULL until
// the owning stage writes them, which lets the completion join be expressed as
// a single conditional UPDATE.
type Recording struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	UserID       string `json:"user_id,omitempty" gorm:"index"`
	Title        string `json:"title"`
	AudioRef     string `json:"audio_ref" gorm:"not null"`
	Stage        Stage  `json:"stage" gorm:"not null;default:'pending';index"`
	ErrorMessage string `json:"error_message,omitempty"`
	FailedStage  string `json:"failed_stage,omitempty"`

	// Generation increases on every retry; results tagged with an older
	// generation are discarded.
	Generation            int  `json:"generation" gorm:"not null;default:1"`
	TranscriptionInFlight bool `json:"-"`
	EmbeddingInFlight     bool `json:"-"`
	FeedbackRequested     bool `json:"-"`

	Transcript       datatypes.JSON `json:"-"`
	TranscriptText   string         `json:"transcript_text,omitempty" gorm:"type:text"`
	AudioDurationSec float64        `json:"audio_duration_sec,omitempty"`
	Metrics          datatypes.JSON `json:"-"`
	Embedding        datatypes.JSON `json:"-"`
	Feedback         datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) HasTranscript() bool { return present(r.Transcript) }
func (r *Recording) HasMetrics() bool    { return present(r.Metrics) }
func (r *Recording) HasEmbedding() bool  { return present(r.Embedding) }
func (r *Recording) HasFeedback() bool   { return present(r.Feedback) }

// TranscriptData decodes the stored transcript, or nil when absent.
func (r *Recording) TranscriptData() (*Transcript, error) {
	if !r.HasTranscript() {
		return nil, nil
	}
	var t Transcript
	if err := json.Unmarshal(r.Transcript, &t); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	return &t, nil
}

// MetricsData decodes the stored metrics, or nil when absent.
func (r *Recording) MetricsData() (*Metrics, error) {
	if !r.HasMetrics() {
		return nil, nil
	}
	var m Metrics
	if err := json.Unmarshal(r.Metrics, &m); err != nil {
		return nil, fmt.Errorf("decoding metrics: %w", err)
	}
	return &m, nil
}

// EmbeddingVector decodes the stored embedding, or nil when absent.
func (r *Recording) EmbeddingVector() ([]float32, error) {
	return decodeVector(r.Embedding)
}

// FeedbackData decodes the stored feedback, or nil when absent.
func (r *Recording) FeedbackData() (*Feedback, error) {
	if !r.HasFeedback() {
		return nil, nil
	}
	var f Feedback
	if err := json.Unmarshal(r.Feedback, &f); err != nil {
		return nil, fmt.Errorf("decoding feedback: %w", err)
	}
	return &f, nil
}

// Validate checks the entity invariants.
func (r *Recording) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("recording id is required")
	}
	if r.AudioRef == "" {
		return fmt.Errorf("recording audio_ref is required")
	}
	if !r.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", r.Stage)
	}
	if r.ErrorMessage != "" && r.Stage != StageFailed {
		return fmt.Errorf("error_message set on %s recording", r.Stage)
	}
	if r.HasMetrics() && !r.HasTranscript() {
		return fmt.Errorf("metrics present without transcript")
	}
	if r.Stage == StageCompleted && (!r.HasTranscript() || !r.HasMetrics() || !r.HasEmbedding()) {
		return fmt.Errorf("completed recording is missing artifacts")
	}
	return nil
}

// EncodeJSON marshals v for a datatypes.JSON column.
func EncodeJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// present treats both an unset value and a scanned SQL NULL ("null") as absent.
func present(raw datatypes.JSON) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeVector(raw datatypes.JSON) ([]float32, error) {
	if !present(raw) {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	return v, nil
}
