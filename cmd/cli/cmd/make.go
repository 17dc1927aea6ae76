// Package cmd - make command
package cmd

import (
	stderrors "errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"traylib/adapters/artifacts"
	"traylib/adapters/toolrunner"
	"traylib/core/engine"
	"traylib/core/ui"
	"traylib/internal/config"
	"traylib/internal/logging"
)

var makeFlags runFlags

// makeCmd runs a full build
var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Render (and optionally slice) the tray library",
	Long: `Resolve every requested tray and lid, count what is missing, ask for
confirmation and then render the missing models.

When --dimensions is given, --lengths, --widths and --heights only supply
heights for "LxW" entries; the explicit list always wins over the ranges.

Examples:
  traylib make -x 4x2x1 -o trays
  traylib make -x 6x4x1 --make-square-cups --make-lids --slice -o trays
  traylib make --config library.yaml --generator lids --doit --jobs 4`,
	Args: cobra.NoArgs,
	RunE: runMake,
}

func init() {
	addRunFlags(makeCmd, &makeFlags)
}

func runMake(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	settings, err := loadSettings(cmd, &makeFlags, nil)
	if err != nil {
		return err
	}
	w := newWriter(cmd)

	if !settings.CountOnly && !settings.DryRun && !toolrunner.Available(settings.Executable) {
		w.Warning("%s was not found on the PATH; renders will fail", settings.Executable)
	}

	store, err := artifacts.NewStore(artifacts.BackendFile)
	if err != nil {
		return err
	}
	o := engine.New(settings, engine.Deps{
		Store:     store,
		Runner:    toolrunner.NewExecRunner(settings.Timeout),
		UI:        w,
		Confirmer: w.NewPrompt(cmd.InOrStdin()),
	})

	summary, err := o.Run(ctx)
	if stderrors.Is(err, engine.ErrDeclined) {
		return nil
	}
	if err != nil {
		return err
	}

	logging.Sugar.Infow("run finished",
		"run_id", summary.RunID,
		"outcome", summary.Outcome,
		"models", len(summary.Models),
		"slices", len(summary.Slices),
		"failures", len(summary.Failures),
		"duration", summary.Duration,
	)
	reportResults(w, settings, summary)
	return nil
}

// reportResults lists the written files when verbose and prints the timing.
func reportResults(w *ui.Writer, settings *config.Settings, summary *engine.Summary) {
	if summary.Outcome != engine.OutcomeCompleted {
		return
	}
	if w.Verbose() {
		verb := "written"
		if settings.DryRun {
			verb = "planned"
		}
		if len(summary.Models) > 0 {
			w.SubHeader("Models " + verb)
			for _, m := range summary.Models {
				w.Println("  %s", m)
			}
		}
		if len(summary.Slices) > 0 {
			w.SubHeader("G-code " + verb)
			for _, s := range summary.Slices {
				w.Println("  %s", s)
			}
		}
	}
	w.Info("Finished %s objects in %s", humanize.Comma(summary.Result.Declared), summary.Duration.Round(time.Millisecond))
}
