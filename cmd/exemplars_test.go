package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/killallgit/speech-coach/internal/services/exemplars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	exemplars.Service
	result *exemplars.ImportResult
	err    error
	body   string
}

func (f *fakeImporter) ImportManifest(ctx context.Context, r io.Reader) (*exemplars.ImportResult, error) {
	b, _ := io.ReadAll(r)
	f.body = string(b)
	return f.result, f.err
}

func TestImportExemplars(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeImporter
		wantErr string
		output  []string
	}{
		{
			name:   "all created",
			svc:    &fakeImporter{result: &exemplars.ImportResult{Created: []string{"a", "b"}}},
			output: []string{"Imported 2 exemplars"},
		},
		{
			name: "partial failure",
			svc: &fakeImporter{result: &exemplars.ImportResult{
				Created: []string{"a"},
				Failed:  []exemplars.ImportError{{Index: 1, Title: "Bad", Error: "speaker_name is required"}},
			}},
			wantErr: "1 manifest entries failed",
			output:  []string{"Imported 1 exemplars", "entry 1 (Bad): speaker_name is required"},
		},
		{
			name:    "service error",
			svc:     &fakeImporter{err: errors.New("invalid exemplar manifest")},
			wantErr: "invalid exemplar manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := importExemplars(context.Background(), tt.svc, strings.NewReader("exemplars: []"), &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, "exemplars: []", tt.svc.body)
			for _, want := range tt.output {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestExemplarsImportCommand_RequiresFile(t *testing.T) {
	_, err := execute(t, "exemplars", "import")
	assert.Error(t, err)
}
