package exemplars

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const manifestDateLayout = "2006-01-02"

// Manifest is the YAML document accepted by ImportManifest:
//
//	exemplars:
//	  - speaker_name: Ada Lovelace
//	    title: Notes on the Engine
//	    date_delivered: "1843-07-01"
//	    audio_ref: /data/ada.wav
type Manifest struct {
	Exemplars []ManifestEntry `yaml:"exemplars"`
}

// ManifestEntry is one exemplar in a manifest
type ManifestEntry struct {
	CreateRequest `yaml:",inline"`
	DateDelivered string `yaml:"date_delivered"`
}

// ImportResult summarizes a manifest import
type ImportResult struct {
	Created []string      `json:"created"`
	Failed  []ImportError `json:"failed,omitempty"`
}

// ImportError describes an entry that could not be created
type ImportError struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// ParseManifest decodes a manifest document
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &m, nil
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// ImportManifest creates every entry of the manifest. Entries that fail
// validation are reported and skipped; the rest are still created.
func (s *service) ImportManifest(ctx context.Context, r io.Reader) (*ImportResult, error) {
	m, err := ParseManifest(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid exemplar manifest")
	}

	result := &ImportResult{Created: make([]string, 0, len(m.Exemplars))}
	for i, entry := range m.Exemplars {
		req := entry.CreateRequest
		if entry.DateDelivered != "" {
			d, err := time.Parse(manifestDateLayout, entry.DateDelivered)
			if err != nil {
				result.Failed = append(result.Failed, ImportError{
					Index: i,
					Title: req.Title,
					Error: fmt.Sprintf("date_delivered must be YYYY-MM-DD, got %q", entry.DateDelivered),
				})
				continue
			}
			req.DateDelivered = &d
		}

		ex, err := s.Create(ctx, req)
		if err != nil {
			result.Failed = append(result.Failed, ImportError{Index: i, Title: req.Title, Error: apperrors.UserMessage(err)})
			continue
		}
		result.Created = append(result.Created, ex.ID)
	}

	s.log.WithFields(logrus.Fields{
		"created": len(result.Created),
		"failed":  len(result.Failed),
	}).Info("Imported exemplar manifest")

	return result, nil
}
