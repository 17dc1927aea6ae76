// Package cmd - plan command
package cmd

import (
	"github.com/spf13/cobra"

	"traylib/adapters/artifacts"
	"traylib/core/engine"
	"traylib/core/output"
	"traylib/internal/config"
)

var (
	planFlags   runFlags
	planFormat  string
	assumeEmpty bool
)

// planCmd lists every resolved target with its decision and command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the resolved targets and their render commands",
	Long: `Resolve the library and show, for every target, what a make run would do
with it. Nothing is rendered and no folders are created.

Examples:
  traylib plan -x 4x2x1 --make-lids -o trays
  traylib plan --format json --assume-empty --config library.hcl
  traylib plan --format markdown -l 2,4,6 -w 2,4 -t 1 -o trays > CATALOG.md`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	addRunFlags(planCmd, &planFlags)
	planCmd.Flags().StringVarP(&planFormat, "format", "f", string(output.FormatCLI), "output format (table, json, markdown)")
	planCmd.Flags().BoolVar(&assumeEmpty, "assume-empty", false, "ignore files already on disk")
}

func runPlan(cmd *cobra.Command, args []string) error {
	formatters := output.NewRegistry(
		output.TableFormatter{NoColor: noColor, Commands: verbose},
		output.JSONFormatter{},
		output.MarkdownFormatter{},
	)
	formatter, err := formatters.Get(planFormat)
	if err != nil {
		return err
	}

	countOnly := true
	settings, err := loadSettings(cmd, &planFlags, func(p *config.Partial) {
		p.CountOnly = &countOnly
	})
	if err != nil {
		return err
	}

	backend := artifacts.BackendFile
	if assumeEmpty {
		backend = artifacts.BackendMemory
	}
	store, err := artifacts.NewStore(backend)
	if err != nil {
		return err
	}

	o := engine.New(settings, engine.Deps{Store: store})
	if _, err := o.Plan(); err != nil {
		return err
	}
	entries, err := o.Inspect()
	if err != nil {
		return err
	}

	report := output.NewReport(entries, o.Counts(), o.Warnings(), output.Metadata{
		RunID:   o.RunID(),
		Unit:    settings.Unit.Name,
		Version: version,
	})
	return formatter.Render(cmd.OutOrStdout(), report)
}
