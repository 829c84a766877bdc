package cli

import (
	"fmt"
	"log/slog"

	"github.com/phanxgames/lumen"
	"github.com/phanxgames/lumen/manifest"
)

// loadPage reads the manifest at opts.ConfigPath and builds it on clock
// with LUMEN_* defaults from the environment.
func loadPage(opts *Options, logger *slog.Logger, clock lumen.Clock, applier lumen.Applier) (*manifest.Page, manifest.Defaults, error) {
	defaults, err := manifest.LoadDefaults()
	if err != nil {
		return nil, manifest.Defaults{}, err
	}
	m, err := manifest.Load(opts.ConfigPath)
	if err != nil {
		return nil, manifest.Defaults{}, err
	}
	page, err := manifest.Build(m, manifest.BuildOptions{
		Clock:    clock,
		Logger:   logger,
		Applier:  applier,
		Defaults: &defaults,
	})
	if err != nil {
		return nil, manifest.Defaults{}, fmt.Errorf("build %s: %w", opts.ConfigPath, err)
	}
	logger.Debug("manifest loaded",
		"path", opts.ConfigPath,
		"page", page.Name,
		"elements", len(page.Elements),
		"timelines", len(page.Timelines),
	)
	return page, defaults, nil
}
