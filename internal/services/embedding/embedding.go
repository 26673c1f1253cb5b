package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/killallgit/speech-coach/pkg/upload"
	"github.com/sirupsen/logrus"
)

// ErrEmptyVector is returned when the service answers without a usable vector.
var ErrEmptyVector = errors.New("embedding service returned an empty vector")

// Embedder maps an audio reference to a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, audioRef string) ([]float32, error)
}

// AudioResolver makes an audio reference available as a local file
type AudioResolver interface {
	Resolve(ctx context.Context, ref, ownerID string) (string, func(), error)
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// HTTPClient calls an audio embedding service that accepts a multipart
// "file" upload and answers {"embedding": [...]}.
type HTTPClient struct {
	cfg      config.EmbeddingConfig
	uploader *upload.Client
	resolver AudioResolver
	log      *logrus.Entry
}

// NewHTTPClient creates an embedding client
func NewHTTPClient(cfg config.EmbeddingConfig, resolver AudioResolver) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		uploader: upload.NewClient(upload.Options{
			Timeout:    cfg.Timeout,
			MaxElapsed: cfg.Timeout,
			RateLimit:  cfg.RateLimit,
		}),
		resolver: resolver,
		log:      logger.WithComponent("embedding"),
	}
}

// Embed uploads the audio and validates the returned vector
func (c *HTTPClient) Embed(ctx context.Context, audioRef string) ([]float32, error) {
	path, cleanup, err := c.resolver.Resolve(ctx, audioRef, "embed")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var resp embedResponse
	err = c.uploader.PostJSON(ctx, upload.Request{
		URL:      c.cfg.APIURL,
		APIKey:   c.cfg.APIKey,
		FilePath: path,
	}, &resp)
	if err != nil {
		return nil, err
	}

	vec, err := c.validate(resp.Embedding)
	if err != nil {
		return nil, err
	}

	c.log.WithField("dimension", len(vec)).Debug("Embedding received")
	return vec, nil
}

func (c *HTTPClient) validate(raw []float64) ([]float32, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyVector
	}
	if c.cfg.Dimension > 0 && len(raw) != c.cfg.Dimension {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(raw), c.cfg.Dimension)
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("embedding component %d is not finite", i)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
