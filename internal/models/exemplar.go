package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Exemplar is a curated reference speech used as a similarity target.
// Once completed it is never modified.
type Exemplar struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	SpeakerName   string     `json:"speaker_name" gorm:"not null"`
	Title         string     `json:"title" gorm:"not null"`
	Occasion      string     `json:"occasion,omitempty"`
	Category      string     `json:"category,omitempty" gorm:"index"`
	DateDelivered *time.Time `json:"date_delivered,omitempty"`
	AudioRef      string     `json:"audio_ref" gorm:"not null"`
	Transcript    string     `json:"transcript,omitempty" gorm:"type:text"`

	Stage             Stage          `json:"stage" gorm:"not null;default:'pending';index"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	EmbeddingInFlight bool           `json:"-"`
	Embedding         datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exemplar) TableName() string {
	return "exemplars"
}

func (e *Exemplar) HasEmbedding() bool { return present(e.Embedding) }

// EmbeddingVector decodes the stored embedding, or nil when absent.
func (e *Exemplar) EmbeddingVector() ([]float32, error) {
	return decodeVector(e.Embedding)
}

// Searchable reports whether the exemplar can be used as a similarity target.
func (e *Exemplar) Searchable() bool {
	return e.Stage == StageCompleted && e.HasEmbedding()
}

// Validate checks the entity invariants.
func (e *Exemplar) Validate() error {
	if e.SpeakerName == "" {
		return fmt.Errorf("exemplar speaker_name is required")
	}
	if e.Title == "" {
		return fmt.Errorf("exemplar title is required")
	}
	if e.AudioRef == "" {
		return fmt.Errorf("exemplar audio_ref is required")
	}
	if e.Stage == StageCompleted && !e.HasEmbedding() {
		return fmt.Errorf("completed exemplar has no embedding")
	}
	return nil
}
