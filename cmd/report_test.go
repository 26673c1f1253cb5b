package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportReport(t *testing.T) {
	db, err := openDatabase(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	metrics, err := models.EncodeJSON(models.Metrics{WordsPerMinute: 140, ClarityScore: 0.85, PacingAssessment: "appropriate"})
	require.NoError(t, err)

	recs := []models.Recording{
		{ID: "done", AudioRef: "/a.wav", Title: "Keynote", Stage: models.StageCompleted, Generation: 1, Metrics: metrics},
		{ID: "waiting", AudioRef: "/b.wav", Title: "Draft", Stage: models.StagePending, Generation: 1},
	}
	require.NoError(t, db.Create(&recs).Error)

	var buf bytes.Buffer
	summary, err := exportReport(context.Background(), recordings.NewRepository(db.DB), 10, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Recordings)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Recordings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "done", rows[1][0])
	assert.Equal(t, "Keynote", rows[1][1])
}
