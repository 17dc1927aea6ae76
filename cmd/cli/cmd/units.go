package cmd

import (
	"github.com/spf13/cobra"

	"traylib/internal/config"
)

// unitsCmd prints how a unit spec resolves, including the structural
// dimensions it implies
var unitsCmd = &cobra.Command{
	Use:   "units <spec>",
	Short: "Show how a unit spec resolves",
	Long: `Resolve a unit spec the way a run would: a named unit (in, cm, mm or a
scale from the app config), name=scale (ru=44.5) or a bare scale in mm.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := args[0]
		countOnly := true
		settings, err := config.Load(config.Sources{
			AppConfig: appConfigFile,
			Flags:     config.Partial{Units: &spec, CountOnly: &countOnly},
		})
		if err != nil {
			return err
		}

		u := settings.Unit
		th := settings.Thickness
		w := newWriter(cmd)
		table := w.NewTable("Property", "Value")
		table.AddRow("unit", u.Name)
		table.AddRow("1 unit in mm", u.ScaleMM.String())
		table.AddRow("length division minimum", settings.LengthDivMinimum.String())
		table.AddRow("width division minimum", settings.WidthDivMinimum.String())
		table.AddRow("wall thickness", th.Wall.StringFixed(3))
		table.AddRow("floor thickness", th.Floor.StringFixed(3))
		table.AddRow("divider thickness", th.Divider.StringFixed(3))
		table.AddRow("interlock height", th.InterlockHeight.StringFixed(3))
		table.Render()
		return nil
	},
}
