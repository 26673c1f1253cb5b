package transcription

import (
	"context"

	"github.com/killallgit/speech-coach/internal/models"
)

// Options tune a single transcription request
type Options struct {
	Language string
	Prompt   string
}

// Transcriber turns an audio reference into a word-timed transcript.
// An empty transcript is a valid result; deciding what it means is left to
// the caller.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string, opts Options) (*models.Transcript, error)
}

// AudioResolver makes an audio reference available as a local file
type AudioResolver interface {
	Resolve(ctx context.Context, ref, ownerID string) (string, func(), error)
}

// DurationProber measures the length of a local audio file in seconds
type DurationProber interface {
	Duration(ctx context.Context, filePath string) (float64, error)
}
