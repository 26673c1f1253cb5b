package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
)

var errNoDuration = errors.New("could not determine audio duration")

// probeOutput holds the entries requested with -show_entries
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
}

// probe runs ffprobe for the container and first audio stream durations
func (f *FFmpeg) probe(ctx context.Context, filePath string) (*probeOutput, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "format=duration:stream=duration",
		"-of", "json",
		filePath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("probe", filePath, err, stderr.String())
	}

	var output probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, NewProcessingError("parse", filePath, err, "")
	}
	return &output, nil
}

// duration prefers the container duration. ffprobe reports "N/A" for
// streams without one, which is skipped like any unparsable value.
func (o *probeOutput) duration(filePath string) (float64, error) {
	candidates := []string{o.Format.Duration}
	for _, s := range o.Streams {
		candidates = append(candidates, s.Duration)
	}

	for _, raw := range candidates {
		if d, err := strconv.ParseFloat(raw, 64); err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, NewProcessingError("duration", filePath, errNoDuration, "")
}
