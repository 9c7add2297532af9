// Package export implements the command to push the classification feed.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/datastore"
	"github.com/gcombe/batnet-go/internal/deployment"
	"github.com/gcombe/batnet-go/internal/export"
)

// Command creates the export command: resolve records to deployments and
// push the classification feed to the feature service.
func Command(settings *conf.Settings) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Push the classification feed to the feature service",
		Long:  "Fetch deployment intervals, resolve each eligible record to the deployment active at its capture time, and push the resulting feed in batches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database output enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			intervals, err := deployment.NewClient(settings).FetchDeployments(cmd.Context())
			if err != nil {
				return err
			}
			resolver := deployment.NewResolver(intervals)

			var pusher export.Pusher = export.NewClient(settings)
			if dryRun {
				pusher = &export.DryRunPusher{Out: os.Stdout}
			}

			assembler := export.NewAssembler(store, resolver, pusher, settings.Export.BatchSize)
			summary, err := assembler.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d records (%d without a matching deployment)\n",
				summary.Exported, summary.Unresolved)
			return nil
		},
	}

	setupFlags(cmd, settings, &dryRun)

	return cmd
}

// setupFlags defines flags specific to the export command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, dryRun *bool) {
	cmd.Flags().BoolVar(dryRun, "dry-run", false, "Print the feed as JSON instead of pushing it")
	cmd.Flags().IntVar(&settings.Export.BatchSize, "batch-size", settings.Export.BatchSize, "Rows per push batch")
}
