// Package ingest implements the command to ingest a directory of recordings.
package ingest

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/ingest"
)

// Command creates the ingest command: detect and persist all WAV files
// under the given directory.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [directory]",
		Short: "Detect and store all *.wav files in a directory",
		Long:  "Walk a directory tree, run bat call detection on each WAV file, and store the results. Already ingested files are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database output enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pipeline, err := ingest.New(settings, store)
			if err != nil {
				return err
			}

			summary, err := pipeline.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d files (%d already known, %d without metadata, %d failed)\n",
				summary.Processed, summary.SkippedExisting, summary.SkippedMetadata, summary.Failed)
			return nil
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags defines flags specific to the ingest command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Ingest.MetadataSource, "metadata", settings.Ingest.MetadataSource, "Metadata source: guano or filename")
	cmd.Flags().Float64Var(&settings.BatDetect.Threshold, "threshold", settings.BatDetect.Threshold, "Detection threshold between 0.0 and 1.0")
}
