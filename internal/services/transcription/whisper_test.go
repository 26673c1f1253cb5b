package transcription

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type localResolver struct {
	path string
	err  error
}

func (r *localResolver) Resolve(ctx context.Context, ref, ownerID string) (string, func(), error) {
	return r.path, func() {}, r.err
}

type fixedProber struct {
	duration float64
	err      error
}

func (p *fixedProber) Duration(ctx context.Context, filePath string) (float64, error) {
	return p.duration, p.err
}

func testAudio(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func testConfig(url string) config.WhisperConfig {
	return config.WhisperConfig{
		APIKey:   "sk-test",
		APIURL:   url,
		Model:    "whisper-1",
		Language: "en",
		Timeout:  5 * time.Second,
	}
}

const verboseJSON = `{
  "language": "english",
  "duration": 10.0,
  "text": " um test ",
  "words": [
    {"word": "um", "start": 0.0, "end": 0.3},
    {"word": " test", "start": 2.0, "end": 2.4},
    {"word": " ", "start": 2.4, "end": 2.4}
  ],
  "segments": [
    {"start": 0.0, "end": 1.0, "avg_logprob": -0.10536051565782628},
    {"start": 1.0, "end": 3.0, "avg_logprob": -0.05129329438755058}
  ]
}`

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.ElementsMatch(t, []string{"word", "segment"}, r.MultipartForm.Value["timestamp_granularities[]"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseJSON))
	}))
	defer server.Close()

	client := NewWhisperClient(testConfig(server.URL), &localResolver{path: testAudio(t, 16)}, nil)
	transcript, err := client.Transcribe(context.Background(), "speech.wav", Options{})
	require.NoError(t, err)

	assert.Equal(t, "um test", transcript.Text)
	assert.Equal(t, 10.0, transcript.DurationSec)
	require.Len(t, transcript.Words, 2, "blank words are dropped")
	assert.Equal(t, "um", transcript.Words[0].Text)
	assert.Equal(t, "test", transcript.Words[1].Text)
	assert.InDelta(t, 0.9, transcript.Words[0].Confidence, 1e-9)
	assert.InDelta(t, 0.95, transcript.Words[1].Confidence, 1e-9)
}

func TestWhisperClient_DurationFallback(t *testing.T) {
	body := `{"text":"hello there","words":[{"word":"hello","start":0.5,"end":0.9},{"word":"there","start":1.0,"end":1.6}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	tests := []struct {
		name   string
		prober DurationProber
		want   float64
	}{
		{name: "ffprobe", prober: &fixedProber{duration: 4.2}, want: 4.2},
		{name: "ffprobe failure uses last word", prober: &fixedProber{err: errors.New("no ffprobe")}, want: 1.6},
		{name: "no prober uses last word", prober: nil, want: 1.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewWhisperClient(testConfig(server.URL), &localResolver{path: testAudio(t, 16)}, tt.prober)
			transcript, err := client.Transcribe(context.Background(), "speech.wav", Options{})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, transcript.DurationSec, 1e-9)
			assert.Equal(t, 1.0, transcript.Words[0].Confidence)
		})
	}
}

func TestWhisperClient_Errors(t *testing.T) {
	t.Run("resolver failure", func(t *testing.T) {
		client := NewWhisperClient(testConfig("http://127.0.0.1:1"), &localResolver{err: errors.New("gone")}, nil)
		_, err := client.Transcribe(context.Background(), "x", Options{})
		assert.EqualError(t, err, "gone")
	})

	t.Run("file too large", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.MaxFileSize = 8
		client := NewWhisperClient(cfg, &localResolver{path: testAudio(t, 64)}, nil)
		_, err := client.Transcribe(context.Background(), "x", Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit is 8")
	})

	t.Run("unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		client := NewWhisperClient(testConfig(server.URL), &localResolver{path: testAudio(t, 16)}, nil)
		_, err := client.Transcribe(context.Background(), "x", Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestSegmentConfidence(t *testing.T) {
	segments := []whisperSegment{
		{Start: 0, End: 2, AvgLogprob: math.Log(0.8)},
		{Start: 3, End: 5, AvgLogprob: math.Log(0.6)},
		{Start: 5, End: 6, AvgLogprob: 0.5},
	}

	tests := []struct {
		name string
		ts   float64
		want float64
	}{
		{name: "inside first", ts: 1.0, want: 0.8},
		{name: "gap uses preceding", ts: 2.5, want: 0.8},
		{name: "inside second", ts: 4.0, want: 0.6},
		{name: "positive logprob clamps", ts: 5.5, want: 1.0},
		{name: "before all", ts: -1, want: 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, segmentConfidence(segments, tt.ts), 1e-9)
		})
	}

	assert.Equal(t, 1.0, segmentConfidence(nil, 3))
}
