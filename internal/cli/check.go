package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phanxgames/lumen"
)

// newCheckCommand creates "check" that loads and builds the manifest and
// reports what was wired and what was skipped.
func newCheckCommand(opts *Options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a page manifest and list unresolved references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			page, _, err := loadPage(opts, logger, &lumen.FakeClock{}, nil)
			if err != nil {
				return err
			}

			summary := newTable("page "+page.Name, "section", "count")
			summary.addRow("elements", strconv.Itoa(len(page.Elements)))
			summary.addRow("timelines", strconv.Itoa(len(page.Timelines)))
			summary.addRow("toggle groups", strconv.Itoa(len(page.Toggles)))
			summary.addRow("particle fields", strconv.Itoa(len(page.Particles)))
			summary.addRow("observed", strconv.Itoa(page.Engine.Registry().Len()))
			fmt.Fprint(cmd.OutOrStdout(), summary.render())

			skipped := newTable("skipped references", "reference")
			for _, s := range page.Skipped {
				skipped.addRow(s)
			}
			fmt.Fprint(cmd.OutOrStdout(), skipped.render())

			if strict && len(page.Skipped) > 0 {
				return fmt.Errorf("%s: %d unresolved references", opts.ConfigPath, len(page.Skipped))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any manifest reference is skipped")

	return cmd
}
