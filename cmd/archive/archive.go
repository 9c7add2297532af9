// Package archive implements the command to archive recordings to FLAC.
package archive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gcombe/batnet-go/internal/archive"
	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/datastore"
)

// Command creates the archive command: transcode selected recordings to
// FLAC and remove the WAV sources once their new location is committed.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Transcode selected recordings to FLAC and remove the sources",
		Long:  "Select recordings by the configured filter, transcode each to FLAC under the archive root, and delete the WAV source only after the new location is durably recorded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database output enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			workflow := archive.NewWorkflow(settings, store)
			summary, err := workflow.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d of %d selected recordings (%d not found, %d failed)\n",
				summary.Committed, summary.Selected, summary.NotFound, summary.Failed)
			return nil
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags defines flags specific to the archive command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Archive.WavRoot, "wav-root", settings.Archive.WavRoot, "Root directory searched for source WAV files")
	cmd.Flags().StringVar(&settings.Archive.FlacRoot, "flac-root", settings.Archive.FlacRoot, "Root directory for FLAC output")
	cmd.Flags().IntVar(&settings.Archive.FlushEvery, "flush-every", settings.Archive.FlushEvery, "Commit archival state after this many transcodes")
	cmd.Flags().BoolVar(&settings.Archive.Verify, "verify", settings.Archive.Verify, "Verify FLAC output before committing")
}
