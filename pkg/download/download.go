package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/killallgit/speech-coach/pkg/logger"
)

// TempPrefix starts the name of every file this package writes.
const TempPrefix = "recording_"

// ErrFileTooLarge is returned when a download exceeds MaxSize.
var ErrFileTooLarge = errors.New("file too large")

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	TempDir       string        // Directory for temporary files
	MaxSize       int64         // Maximum file size in bytes (0 = no limit)
	Timeout       time.Duration // Download timeout
	MaxElapsed    time.Duration // Retry budget for DownloadWithRetry
	UserAgent     string
	ValidateAudio bool // Validate content-type is audio
}

// DefaultOptions returns default download options
func DefaultOptions() DownloadOptions {
	return DownloadOptions{
		TempDir:       os.TempDir(),
		MaxSize:       25 * 1024 * 1024,
		Timeout:       5 * time.Minute,
		MaxElapsed:    time.Minute,
		UserAgent:     "SpeechCoach/1.0",
		ValidateAudio: true,
	}
}

// DownloadResult contains information about a successful download
type DownloadResult struct {
	FilePath      string
	ContentType   string
	ContentLength int64
}

// Downloader fetches remote audio into temporary storage
type Downloader struct {
	client  *http.Client
	options DownloadOptions
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options DownloadOptions) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// IsRemote reports whether ref is an http(s) URL rather than a local path.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve makes ref available as a local file. Local paths are returned as
// is; URLs are downloaded and the returned cleanup removes the temp copy.
func (d *Downloader) Resolve(ctx context.Context, ref, ownerID string) (string, func(), error) {
	if !IsRemote(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", func() {}, fmt.Errorf("audio file unavailable: %w", err)
		}
		return ref, func() {}, nil
	}

	result, err := d.DownloadWithRetry(ctx, ref, ownerID)
	if err != nil {
		return "", func() {}, err
	}
	return result.FilePath, func() { _ = CleanupTempFile(result.FilePath) }, nil
}

// DownloadWithRetry wraps DownloadToTemp in exponential backoff. Client
// errors other than 408 and 429 are not retried.
func (d *Downloader) DownloadWithRetry(ctx context.Context, url, ownerID string) (*DownloadResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.options.MaxElapsed

	var result *DownloadResult
	op := func() error {
		r, err := d.DownloadToTemp(ctx, url, ownerID)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrFileTooLarge) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// DownloadToTemp downloads a URL to a temporary file named after ownerID
func (d *Downloader) DownloadToTemp(ctx context.Context, url, ownerID string) (*DownloadResult, error) {
	log := logger.WithComponent("download").WithField("owner_id", ownerID)
	log.Debugf("Starting download from %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateAudio && !isAudioContentType(contentType) {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}

	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, resp.ContentLength, d.options.MaxSize)
	}

	tempFile, err := d.createTempFile(ownerID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := d.copyLimited(resp.Body, tempFile)
	tempPath := tempFile.Name()
	tempFile.Close()
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	log.Debugf("Downloaded %d bytes to %s", written, tempPath)

	return &DownloadResult{
		FilePath:      tempPath,
		ContentType:   contentType,
		ContentLength: written,
	}, nil
}

func (d *Downloader) createTempFile(ownerID, url string) (*os.File, error) {
	ext := ".wav"
	base := path.Base(strings.SplitN(url, "?", 2)[0])
	if e := strings.TrimPrefix(path.Ext(base), "."); isValidAudioExtension(e) {
		ext = "." + strings.ToLower(e)
	}

	if err := os.MkdirAll(d.options.TempDir, 0o755); err != nil {
		return nil, err
	}

	pattern := fmt.Sprintf("%s%s_*%s", TempPrefix, sanitize(ownerID), ext)
	return os.CreateTemp(d.options.TempDir, pattern)
}

// copyLimited fails with ErrFileTooLarge rather than silently truncating.
func (d *Downloader) copyLimited(src io.Reader, dst *os.File) (int64, error) {
	if d.options.MaxSize <= 0 {
		return io.Copy(dst, src)
	}

	written, err := io.Copy(dst, io.LimitReader(src, d.options.MaxSize+1))
	if err != nil {
		return written, fmt.Errorf("failed to download: %w", err)
	}
	if written > d.options.MaxSize {
		return written, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, d.options.MaxSize)
	}
	return written, nil
}

// CleanupTempFile removes a temporary file
func CleanupTempFile(path string) error {
	if path == "" {
		return nil
	}

	logger.WithComponent("download").Debugf("Cleaning up temp file: %s", path)
	return os.Remove(path)
}

// CleanupOldTempFiles removes downloads older than maxAge and returns how
// many were deleted.
func CleanupOldTempFiles(tempDir string, maxAge time.Duration) (int, error) {
	files, err := filepath.Glob(filepath.Join(tempDir, TempPrefix+"*"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		logger.WithComponent("download").Debugf("Cleaned up %d old temp files", removed)
	}

	return removed, nil
}

func isAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "video/webm") ||
		contentType == "application/octet-stream"
}

func isValidAudioExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case "mp3", "mp4", "m4a", "mpeg", "mpga", "ogg", "wav", "flac", "webm":
		return true
	}
	return false
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '*' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, id)
}
