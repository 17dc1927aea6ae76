// Package cmd provides the CLI commands for traylib.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"traylib/core/ui"
	"traylib/internal/config"
	"traylib/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile       string
	appConfigFile string
	generator     string
	verbose       bool
	noColor       bool
	logFormat     string
	logFile       string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "traylib",
	Short: "Generate libraries of parametric storage trays",
	Long: `traylib renders whole libraries of storage trays and lids with OpenSCAD
and optionally slices them into g-code.

Every combination of the requested dimensions and variants is resolved to a
model file; models already on disk are skipped unless --regen is given.

Examples:
  traylib make -x 4x2x1 -x 6x4x1 -o trays
  traylib make -l 4,6,8 -w 2,4 -t 1 --make-divisions -o trays
  traylib count --config library.hcl --generator metric
  traylib plan --format json -x 4x2x1 --make-lids`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

// Execute runs the CLI
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "run config file (.json, .yaml or .hcl)")
	rootCmd.PersistentFlags().StringVar(&appConfigFile, "app-config", "",
		fmt.Sprintf("application data file (default: first of %v in the working directory)", config.AppConfigNames))
	rootCmd.PersistentFlags().StringVarP(&generator, "generator", "g", "", "generator section of the config file to apply")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write the log to a file instead of stderr")

	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.DefaultConfig().WithEnv()
	if verbose {
		cfg.Level = "debug"
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	if logFile != "" {
		cfg.Output = logFile
	}
	if err := logging.Initialize(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

func newWriter(cmd *cobra.Command) *ui.Writer {
	w := ui.NewWriter(cmd.OutOrStdout(), noColor)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "traylib version %s\n", version)
	},
}
