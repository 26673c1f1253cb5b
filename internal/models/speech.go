package models

// Stage is the pipeline phase of a recording or exemplar.
type Stage string

const (
	StagePending      Stage = "pending"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageEmbedding    Stage = "embedding"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// IsTerminal reports whether no further automatic transition can happen.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StagePending, StageTranscribing, StageAnalyzing, StageEmbedding, StageCompleted, StageFailed:
		return true
	}
	return false
}

// Word is a single recognized word with timing in seconds.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the ordered word-level output of transcription.
type Transcript struct {
	Text        string  `json:"text"`
	Words       []Word  `json:"words"`
	DurationSec float64 `json:"duration_sec"`
	Language    string  `json:"language,omitempty"`
}

// IsEmpty reports whether the transcript carries no usable words.
func (t *Transcript) IsEmpty() bool {
	return t == nil || len(t.Words) == 0
}

// Pause is a silence between two adjacent words.
type Pause struct {
	TimestampSec float64 `json:"timestamp_sec"`
	DurationSec  float64 `json:"duration_sec"`
}

// FillerOccurrence is one detected filler word.
type FillerOccurrence struct {
	TimestampSec float64 `json:"timestamp_sec"`
	Confidence   float64 `json:"confidence"`
}

// Metrics are the prosodic and linguistic measurements of a transcript.
type Metrics struct {
	WordsPerMinute   float64                       `json:"words_per_minute"`
	WordCount        int                           `json:"word_count"`
	DurationSec      float64                       `json:"duration_sec"`
	Pauses           []Pause                       `json:"pauses"`
	LongPauseCount   int                           `json:"long_pause_count"`
	FillerWordCounts map[string][]FillerOccurrence `json:"filler_word_counts"`
	ClarityScore     float64                       `json:"clarity_score"`
	PacingAssessment string                        `json:"pacing_assessment"`
}

// TotalFillers sums occurrences across all filler words.
func (m *Metrics) TotalFillers() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, occ := range m.FillerWordCounts {
		total += len(occ)
	}
	return total
}

// Feedback is the coaching output for a completed recording.
type Feedback struct {
	Strengths         []string `json:"strengths"`
	Improvements      []string `json:"improvements"`
	Recommendations   []string `json:"recommendations"`
	OverallAssessment string   `json:"overall_assessment"`
	Source            string   `json:"source,omitempty"`
}
