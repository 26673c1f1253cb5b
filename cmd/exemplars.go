package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/killallgit/speech-coach/internal/services/exemplars"
	"github.com/spf13/cobra"
)

var exemplarsCmd = &cobra.Command{
	Use:   "exemplars",
	Short: "Manage the exemplar speech corpus",
}

var exemplarsImportCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Import exemplars from a YAML manifest",
	Long: `Import exemplar speeches listed in a YAML manifest.

Entries carrying an embedding are stored ready for search. Other entries
queue an embedding job that runs the next time the server processes jobs.

Example manifest:
  exemplars:
    - speaker_name: Ada Lovelace
      title: Notes on the Engine
      category: lecture
      audio_ref: https://example.com/ada.mp3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open manifest: %w", err)
		}
		defer f.Close()

		app, err := newApplication(appConfig)
		if err != nil {
			return err
		}
		defer app.Close()

		return importExemplars(cmd.Context(), app.exemplars, f, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exemplarsCmd)
	exemplarsCmd.AddCommand(exemplarsImportCmd)
}

func importExemplars(ctx context.Context, svc exemplars.Service, r io.Reader, out io.Writer) error {
	result, err := svc.ImportManifest(ctx, r)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d exemplars\n", len(result.Created))
	for _, failure := range result.Failed {
		fmt.Fprintf(out, "  entry %d (%s): %s\n", failure.Index, failure.Title, failure.Error)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d manifest entries failed", len(result.Failed))
	}
	return nil
}
