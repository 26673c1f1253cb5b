package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/internal/services/reports"
	"github.com/spf13/cobra"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export analysis reports",
}

var reportExportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export completed recordings to a spreadsheet",
	Long: `Write the metrics of completed recordings to an Excel workbook.

The workbook has one row per recording on the "Recordings" sheet and
aggregate figures on the "Summary" sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(appConfig.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()

		summary, err := exportReport(cmd.Context(), recordings.NewRepository(db.DB), reportLimit, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d recordings to %s (%d skipped)\n", summary.Recordings, args[0], summary.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportExportCmd)
	reportExportCmd.Flags().IntVar(&reportLimit, "limit", 1000, "maximum number of recordings to export")
}

func exportReport(ctx context.Context, repo recordings.Repository, limit int, w io.Writer) (*reports.Summary, error) {
	recs, err := repo.ListCompleted(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return reports.Write(recs, w)
}
