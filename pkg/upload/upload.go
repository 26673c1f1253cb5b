// Package upload posts audio files as multipart forms to JSON APIs with
// rate limiting and exponential backoff.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}

// Request describes one multipart upload.
type Request struct {
	URL       string
	APIKey    string
	FileField string
	FilePath  string
	Fields    map[string][]string
}

// Options configure a Client.
type Options struct {
	Timeout    time.Duration
	MaxElapsed time.Duration
	RateLimit  float64 // requests per second, 0 disables
}

// Client sends multipart uploads.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		maxElapsed: opts.MaxElapsed,
	}
	if c.maxElapsed <= 0 {
		c.maxElapsed = 2 * time.Minute
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

// PostJSON uploads req and decodes a JSON response into target. Transport
// errors and retryable statuses are retried until MaxElapsed; anything else
// fails on the first attempt.
func (c *Client) PostJSON(ctx context.Context, req Request, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed

	op := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		err := c.do(ctx, req, target)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		var de *DecodeError
		if errors.As(err, &de) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// DecodeError is a response body that is not the expected JSON.
type DecodeError struct {
	Err  error
	Body string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("json decode error: %v body=%s", e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (c *Client) do(ctx context.Context, req Request, target interface{}) error {
	body, contentType, err := buildForm(req)
	if err != nil {
		return backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &DecodeError{Err: err, Body: truncate(string(raw), 512)}
	}
	return nil
}

// buildForm is called per attempt because the body reader is consumed.
func buildForm(req Request) (io.Reader, string, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for key, values := range req.Fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}

	field := req.FileField
	if field == "" {
		field = "file"
	}
	part, err := w.CreateFormFile(field, filepath.Base(req.FilePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &b, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
