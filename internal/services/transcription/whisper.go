package transcription

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/killallgit/speech-coach/pkg/upload"
	"github.com/sirupsen/logrus"
)

// whisperResponse is the verbose_json body of the transcription endpoint
type whisperResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	AvgLogprob float64 `json:"avg_logprob"`
}

// WhisperClient talks to an OpenAI-compatible audio transcription endpoint
type WhisperClient struct {
	cfg      config.WhisperConfig
	uploader *upload.Client
	resolver AudioResolver
	prober   DurationProber
	log      *logrus.Entry
}

// NewWhisperClient creates a client. prober may be nil, in which case a
// missing duration falls back to the end of the last word.
func NewWhisperClient(cfg config.WhisperConfig, resolver AudioResolver, prober DurationProber) *WhisperClient {
	return &WhisperClient{
		cfg: cfg,
		uploader: upload.NewClient(upload.Options{
			Timeout:    cfg.Timeout,
			MaxElapsed: cfg.Timeout,
			RateLimit:  cfg.RateLimit,
		}),
		resolver: resolver,
		prober:   prober,
		log:      logger.WithComponent("whisper"),
	}
}

// Transcribe uploads the audio and converts the response to a Transcript
func (c *WhisperClient) Transcribe(ctx context.Context, audioRef string, opts Options) (*models.Transcript, error) {
	path, cleanup, err := c.resolver.Resolve(ctx, audioRef, "transcribe")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if c.cfg.MaxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat audio: %w", err)
		}
		if info.Size() > c.cfg.MaxFileSize {
			return nil, fmt.Errorf("audio file is %d bytes, limit is %d", info.Size(), c.cfg.MaxFileSize)
		}
	}

	language := opts.Language
	if language == "" {
		language = c.cfg.Language
	}

	fields := map[string][]string{
		"model":                     {c.cfg.Model},
		"response_format":           {"verbose_json"},
		"timestamp_granularities[]": {"word", "segment"},
		"temperature":               {strconv.FormatFloat(c.cfg.Temperature, 'f', -1, 64)},
	}
	if language != "" {
		fields["language"] = []string{language}
	}
	if opts.Prompt != "" {
		fields["prompt"] = []string{opts.Prompt}
	}

	start := time.Now()
	var resp whisperResponse
	err = c.uploader.PostJSON(ctx, upload.Request{
		URL:      c.cfg.APIURL,
		APIKey:   c.cfg.APIKey,
		FilePath: path,
		Fields:   fields,
	}, &resp)
	if err != nil {
		return nil, err
	}

	transcript := toTranscript(&resp)
	if transcript.DurationSec <= 0 && c.prober != nil {
		if d, err := c.prober.Duration(ctx, path); err == nil {
			transcript.DurationSec = d
		} else {
			c.log.WithError(err).Debug("ffprobe duration unavailable")
		}
	}
	if transcript.DurationSec <= 0 && len(transcript.Words) > 0 {
		transcript.DurationSec = transcript.Words[len(transcript.Words)-1].End
	}

	c.log.WithFields(logrus.Fields{
		"words":    len(transcript.Words),
		"duration": transcript.DurationSec,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("Transcription finished")

	return transcript, nil
}

// toTranscript maps the response onto the domain type. Word confidence is
// exp(avg_logprob) of the segment the word starts in.
func toTranscript(resp *whisperResponse) *models.Transcript {
	t := &models.Transcript{
		Text:        strings.TrimSpace(resp.Text),
		DurationSec: resp.Duration,
		Language:    resp.Language,
		Words:       make([]models.Word, 0, len(resp.Words)),
	}

	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		t.Words = append(t.Words, models.Word{
			Text:       text,
			Start:      w.Start,
			End:        w.End,
			Confidence: segmentConfidence(resp.Segments, w.Start),
		})
	}
	return t
}

// segmentConfidence finds the segment containing ts, or the last one that
// started before it. Without segments the word is fully trusted.
func segmentConfidence(segments []whisperSegment, ts float64) float64 {
	if len(segments) == 0 {
		return 1
	}

	match := -1
	for i, s := range segments {
		if s.Start > ts {
			break
		}
		match = i
		if ts < s.End {
			break
		}
	}
	if match < 0 {
		match = 0
	}

	c := math.Exp(segments[match].AvgLogprob)
	return math.Max(0, math.Min(1, c))
}
