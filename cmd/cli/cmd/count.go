package cmd

import (
	"github.com/spf13/cobra"

	"traylib/adapters/artifacts"
	"traylib/core/engine"
	"traylib/internal/config"
)

var countFlags runFlags

// countCmd reports what a make run would do, without doing it
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count declared, existing and missing objects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		countOnly := true
		settings, err := loadSettings(cmd, &countFlags, func(p *config.Partial) {
			p.CountOnly = &countOnly
		})
		if err != nil {
			return err
		}

		w := newWriter(cmd)
		o := engine.New(settings, engine.Deps{Store: artifacts.NewFileStore(), UI: w})
		summary, err := o.Run(cmd.Context())
		if err != nil {
			return err
		}
		w.Debug("run %s", summary.RunID)
		return nil
	},
}

func init() {
	addRunFlags(countCmd, &countFlags)
}
