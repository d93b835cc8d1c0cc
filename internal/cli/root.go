// Package cli implements the coreml-relabel commands.
package cli

import (
	"github.com/gomlx/coreml-relabel/internal/config"
	"github.com/gomlx/coreml-relabel/internal/logging"

	"github.com/spf13/cobra"
)

// Version is set by main from ldflags or "dev".
var Version string

var (
	cfgFile  string
	logLevel string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "coreml-relabel",
	Short: "Rewrite the class labels and metadata of converted CoreML classifiers",
	Long: `coreml-relabel edits CoreML classifiers after conversion: it replaces the class
labels and the keys of the label probabilities output, stamps descriptive
metadata, and writes the model back as an .mlmodel file or an .mlpackage with
its weights.

Settings come from an optional coreml-relabel.yaml (or --config), from
COREML_RELABEL_* environment variables and from command line flags, in
increasing priority.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./coreml-relabel.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	rootCmd.AddCommand(relabelCmd, inspectCmd, labelsCmd)
}

// Execute runs the root command. Returns error for exit code handling.
func Execute() error {
	if Version == "" {
		Version = "dev"
	}
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		c.Logging.Level = logLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if err := logging.Init(c.Logging.Level, c.Logging.File, c.Logging.Console); err != nil {
		return err
	}
	cfg = c
	return nil
}
