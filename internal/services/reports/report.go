// Package reports exports completed recordings to spreadsheets.
package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook
const (
	RecordingsSheet = "Recordings"
	SummarySheet    = "Summary"
)

var recordingHeader = []interface{}{
	"ID", "Title", "User", "Created", "Duration (s)", "Words", "Words/min",
	"Pacing", "Clarity", "Fillers", "Pauses", "Long pauses", "Feedback",
}

// Summary aggregates the exported recordings
type Summary struct {
	Recordings     int
	Skipped        int
	AvgWPM         float64
	AvgClarity     float64
	TotalFillers   int
	TotalLongPause int
}

// Write renders recs as an xlsx workbook to w. Recordings whose metrics
// cannot be decoded are skipped and counted in the summary.
func Write(recs []models.Recording, w io.Writer) (*Summary, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordingsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(RecordingsSheet, "A1", &recordingHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(RecordingsSheet, 1, 1, bold)
	}

	log := logger.WithComponent("reports")
	summary := &Summary{}
	row := 2
	var wpmSum, claritySum float64

	for i := range recs {
		rec := &recs[i]
		m, err := rec.MetricsData()
		if err != nil || m == nil {
			log.WithField("recording_id", rec.ID).Warn("Skipping recording without readable metrics")
			summary.Skipped++
			continue
		}

		feedbackState := "missing"
		if rec.HasFeedback() {
			feedbackState = "present"
		}

		values := []interface{}{
			rec.ID, rec.Title, rec.UserID, rec.CreatedAt.UTC().Format(time.RFC3339),
			m.DurationSec, m.WordCount, m.WordsPerMinute, m.PacingAssessment,
			m.ClarityScore, m.TotalFillers(), len(m.Pauses), m.LongPauseCount, feedbackState,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(RecordingsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", row, err)
		}
		row++

		summary.Recordings++
		wpmSum += m.WordsPerMinute
		claritySum += m.ClarityScore
		summary.TotalFillers += m.TotalFillers()
		summary.TotalLongPause += m.LongPauseCount
	}

	if summary.Recordings > 0 {
		summary.AvgWPM = wpmSum / float64(summary.Recordings)
		summary.AvgClarity = claritySum / float64(summary.Recordings)
	}

	if err := writeSummary(f, summary); err != nil {
		return nil, err
	}
	if err := f.Write(w); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return summary, nil
}

func writeSummary(f *excelize.File, s *Summary) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Recordings", s.Recordings},
		{"Skipped", s.Skipped},
		{"Average words/min", s.AvgWPM},
		{"Average clarity", s.AvgClarity},
		{"Total fillers", s.TotalFillers},
		{"Total long pauses", s.TotalLongPause},
	}
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	return nil
}
