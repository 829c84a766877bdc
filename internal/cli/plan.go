package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/lumen"
)

// newPlanCommand creates "plan" that scrolls the page to the bottom on a
// virtual clock and prints when each class changes.
func newPlanCommand(opts *Options) *cobra.Command {
	var (
		plan  scrollPlan
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the reveal and class schedule of a scripted scroll",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())
			out := cmd.OutOrStdout()

			if !watch {
				return printPlan(out, opts, logger, plan)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchManifest(ctx, logger, opts.ConfigPath, 300*time.Millisecond, func() error {
				if err := printPlan(out, opts, logger, plan); err != nil {
					// Keep watching; the next save may fix it.
					logger.Error("plan failed", "error", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&plan.Step, "step", 400, "Scroll distance per wheel event in pixels")
	cmd.Flags().DurationVar(&plan.Interval, "interval", 400*time.Millisecond, "Time between wheel events")
	cmd.Flags().DurationVar(&plan.Settle, "settle", 3*time.Second, "Simulated time after the last wheel event")
	cmd.Flags().IntVar(&plan.TPS, "tps", 60, "Simulated frames per second")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run when the manifest changes")

	return cmd
}

func printPlan(out io.Writer, opts *Options, logger *slog.Logger, plan scrollPlan) error {
	clock := &lumen.FakeClock{}
	page, _, err := loadPage(opts, logger, clock, nil)
	if err != nil {
		return err
	}
	changes := simulate(page, clock, plan)

	t := newTable(fmt.Sprintf("plan %s (step %.0fpx every %s)", page.Name, plan.Step, plan.Interval),
		"time", "scroll", "element", "class", "")
	for _, c := range changes {
		state := "on"
		if !c.On {
			state = "off"
		}
		t.addRow(
			strconv.FormatInt(c.At.Milliseconds(), 10)+"ms",
			strconv.FormatFloat(c.ScrollY, 'f', 0, 64),
			c.Element,
			c.Class,
			state,
		)
	}
	_, err = fmt.Fprint(out, t.render())
	return err
}

// watchManifest calls run once, then again whenever path is written,
// collapsing bursts of events within debounce into one call. It returns
// when ctx is done or run fails.
func watchManifest(ctx context.Context, logger *slog.Logger, path string, debounce time.Duration, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := run(); err != nil {
		return err
	}
	logger.Info("watching manifest", "path", path)

	target := filepath.Clean(path)
	changed := make(chan struct{}, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watch error", "error", err)
			}
		}
	})
	g.Go(func() error {
		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				timer.Reset(debounce)
			case <-timer.C:
				logger.Debug("manifest changed", "path", path)
				if err := run(); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
