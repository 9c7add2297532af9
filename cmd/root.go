package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gcombe/batnet-go/cmd/archive"
	"github.com/gcombe/batnet-go/cmd/export"
	"github.com/gcombe/batnet-go/cmd/ingest"
	"github.com/gcombe/batnet-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "batnet",
		Short: "BatNET-Go CLI",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		ingest.Command(settings),
		archive.Command(settings),
		export.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
