package cli

import (
	"github.com/spf13/cobra"

	"github.com/phanxgames/lumen"
	"github.com/phanxgames/lumen/ebitenhost"
	"github.com/phanxgames/lumen/internal/logging"
	"github.com/phanxgames/lumen/manifest"
)

// newPlayCommand creates "play" that opens the page in a window.
func newPlayCommand(opts *Options) *cobra.Command {
	var cfg ebitenhost.Config

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open the page in a window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			defaults, err := manifest.LoadDefaults()
			if err != nil {
				return err
			}
			if cfg.TPS <= 0 {
				cfg.TPS = defaults.TPS
			}
			clock := lumen.NewFrameClock(cfg.TPS)
			page, _, err := loadPage(opts, logger, clock, nil)
			if err != nil {
				return err
			}
			page.Engine.SetDebugMode(opts.LogLevel == logging.LevelDebug)
			if cfg.Title == "" {
				cfg.Title = "lumen: " + page.Name
			}

			game := ebitenhost.NewGame(page.Engine, clock, cfg)
			if page.Cart != nil {
				page.Cart.Ripples = game.AddRipple
			}
			page.Start()
			logger.Info("playing", "page", page.Name, "tps", cfg.TPS)
			return game.Run()
		},
	}

	cmd.Flags().IntVar(&cfg.TPS, "tps", 0, "Ticks per second (default LUMEN_TPS)")
	cmd.Flags().IntVar(&cfg.Width, "width", 0, "Window width (default manifest viewport)")
	cmd.Flags().IntVar(&cfg.Height, "height", 0, "Window height (default manifest viewport)")
	cmd.Flags().BoolVar(&cfg.ShowFPS, "fps", false, "Show the FPS/TPS overlay")
	cmd.Flags().BoolVar(&cfg.ShowLabels, "labels", false, "Print element names on elements without text")

	return cmd
}
