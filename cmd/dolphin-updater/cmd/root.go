package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/service/updater"
	"github.com/oshokin/dolphin-updater/internal/version"
)

var (
	// binaryPath is the Dolphin.exe to check, update and start.
	binaryPath string

	// configPath to the configuration YAML file.
	configPath string

	// assumeYes skips the interactive update confirmation.
	assumeYes bool

	// rootCmd represents the base command for checking and updating a Dolphin build.
	rootCmd = &cobra.Command{
		Use:   "dolphin-updater",
		Short: "Update a Dolphin Emulator build to the latest published one",
		Long: `Dolphin Updater detects the version of your Dolphin build and updates it
to the latest one, asking for confirmation first and starting the emulator
when it is done.

Currently supported builds: official master builds, Ishiiruka. The build
line is detected from the binary itself, so pointing --path at an Ishiiruka
build checks the Ishiiruka downloads instead of the official listing.
Without --path a Dolphin.exe in the working directory is used.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				BinaryPath: binaryPath,
				ConfigPath: configPath,
				AssumeYes:  assumeYes,
			}

			return updater.Run(ctx, options)
		},
	}

	// settingsCmd writes a settings file filled with defaults for later editing.
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Write a configuration file populated with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			savedPath := configPath
			if savedPath == "" {
				savedPath = config.DefaultConfigFilename
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", savedPath)

			return err
		},
	}
)

// Execute runs the dolphin-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&binaryPath, "path", "p", updater.BinaryName, "path to the Dolphin.exe to update")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "update without asking for confirmation")
}
