package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phanxgames/lumen"
)

// newSampleCommand creates "sample" that prints a timeline's computed
// values at chosen progress points without playing it.
func newSampleCommand(opts *Options) *cobra.Command {
	var at []float64

	cmd := &cobra.Command{
		Use:   "sample <timeline>",
		Short: "Print a timeline's property values at progress points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			page, _, err := loadPage(opts, logger, &lumen.FakeClock{}, nil)
			if err != nil {
				return err
			}
			tl, ok := page.Timelines[args[0]]
			if !ok {
				names := make([]string, 0, len(page.Timelines))
				for name := range page.Timelines {
					names = append(names, name)
				}
				slices.Sort(names)
				return fmt.Errorf("unknown timeline %q (have %v)", args[0], names)
			}

			t := newTable(fmt.Sprintf("timeline %s (%.2fs)", args[0], tl.Length()), "progress", "element", "property", "value")
			for _, p := range at {
				for _, s := range tl.Sample(p * tl.Length()) {
					name := ""
					if s.Target != nil {
						name = s.Target.Name
					}
					t.addRow(
						strconv.FormatFloat(p, 'f', 2, 64),
						name,
						s.Property.String(),
						strconv.FormatFloat(s.Value, 'f', 3, 64),
					)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), t.render())
			return err
		},
	}

	cmd.Flags().Float64SliceVar(&at, "at", []float64{0, 0.25, 0.5, 0.75, 1}, "Progress points in [0, 1]")

	return cmd
}
