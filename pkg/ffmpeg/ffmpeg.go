package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// FFmpeg wraps the ffprobe binary used to inspect uploaded audio
type FFmpeg struct {
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffprobePath string, timeout time.Duration) *FFmpeg {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpeg{
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks that ffprobe is available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// Duration returns the length of an audio file in seconds
func (f *FFmpeg) Duration(ctx context.Context, filePath string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	output, err := f.probe(ctx, filePath)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("%w: %s", ErrProcessingTimeout, filePath)
		}
		return 0, err
	}
	return output.duration(filePath)
}
