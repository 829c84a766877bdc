package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/lumen"
	"github.com/phanxgames/lumen/internal/logging"
	"github.com/phanxgames/lumen/manifest"
)

// maxScriptFrames bounds a scripted run whose waits never finish.
const maxScriptFrames = 1 << 20

// newSimulateCommand creates "simulate" that runs the page headless, either
// from a JSON input script on a virtual clock or in real time with a steady
// auto-scroll.
func newSimulateCommand(opts *Options) *cobra.Command {
	var (
		script   string
		realtime bool
		duration time.Duration
		speed    float64
		trace    bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a page headless from an input script or in real time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			var applier lumen.Applier
			var traceOut *logging.Writer
			if trace {
				traceOut = logging.NewWriter(logger, "apply")
				defer traceOut.Flush()
				applier = traceApplier(traceOut)
			}

			switch {
			case script != "":
				data, err := os.ReadFile(script)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				clock := &lumen.FakeClock{}
				page, defaults, err := loadPage(opts, logger, clock, applier)
				if err != nil {
					return err
				}
				snaps, err := runScript(page, clock, data, defaults.TPS)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), renderSnapshots(page, snaps))
				return err
			case realtime:
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				page, defaults, err := loadPage(opts, logger, lumen.NewWallClock(), applier)
				if err != nil {
					return err
				}
				return runRealtime(ctx, logger, page, defaults.TPS, duration, speed)
			default:
				return errors.New("simulate requires --script or --realtime")
			}
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "JSON input script to replay on a virtual clock")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Run on the wall clock instead of a script")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "Real-time run length")
	cmd.Flags().Float64Var(&speed, "speed", 600, "Real-time auto-scroll speed in pixels per second")
	cmd.Flags().BoolVar(&trace, "trace", false, "Log every applied visual update")

	return cmd
}

// runScript replays a JSON input script frame by frame at tps and returns
// the snapshots it captured.
func runScript(page *manifest.Page, clock *lumen.FakeClock, data []byte, tps int) ([]lumen.Snapshot, error) {
	runner, err := lumen.LoadTestScript(data)
	if err != nil {
		return nil, err
	}
	if tps <= 0 {
		tps = 60
	}
	frame := time.Second / time.Duration(tps)

	e := page.Engine
	e.SetTestRunner(runner)
	page.Start()
	for i := 0; !runner.Done(); i++ {
		if i >= maxScriptFrames {
			return nil, fmt.Errorf("script still running after %d frames", maxScriptFrames)
		}
		clock.Advance(frame)
		e.Update()
	}
	return runner.Snapshots(), nil
}

func renderSnapshots(page *manifest.Page, snaps []lumen.Snapshot) string {
	var sb strings.Builder
	for _, snap := range snaps {
		t := newTable(fmt.Sprintf("snapshot %s (frame %d)", snap.Label, snap.Frame),
			"element", "opacity", "translateY", "scale", "text", "classes")
		for _, name := range page.ElementNames() {
			st, ok := snap.States[name]
			if !ok {
				continue
			}
			t.addRow(
				name,
				strconv.FormatFloat(st.Opacity, 'f', 2, 64),
				strconv.FormatFloat(st.TranslateY, 'f', 1, 64),
				strconv.FormatFloat(st.Scale, 'f', 2, 64),
				st.Text,
				strings.Join(st.Classes, " "),
			)
		}
		sb.WriteString(t.render())
	}
	return sb.String()
}

// traceApplier writes one line per applied element state.
func traceApplier(w io.Writer) lumen.Applier {
	return lumen.ApplierFunc(func(el *lumen.Element, s lumen.VisualState) {
		fmt.Fprintf(w, "%s opacity=%.3f translate=(%.1f,%.1f) scale=%.3f classes=%s\n",
			el.Name, s.Opacity, s.TranslateX, s.TranslateY, s.Scale, strings.Join(s.Classes, ","))
	})
}

// runRealtime ticks the page on the wall clock for d while scrolling down
// at speed pixels per second. Progress is logged once a second from a
// separate goroutine fed by the frame loop.
func runRealtime(ctx context.Context, logger *slog.Logger, page *manifest.Page, tps int, d time.Duration, speed float64) error {
	if tps <= 0 {
		tps = 60
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type progress struct {
		frames  uint64
		scrollY float64
	}
	updates := make(chan progress, 1)

	e := page.Engine
	last := e.Now()
	e.SetUpdateFunc(func(now time.Duration) {
		if dt := now - last; dt > 0 && speed > 0 {
			e.InjectScroll(speed * dt.Seconds())
		}
		last = now
		select {
		case updates <- progress{frames: e.Frames(), scrollY: e.ScrollY()}:
		default:
		}
	})
	page.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		err := lumen.RunRealtime(ctx, e, time.Second/time.Duration(tps))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		var latest progress
		for {
			select {
			case p, ok := <-updates:
				if !ok {
					logger.Info("simulation finished", "page", page.Name, "frames", latest.frames, "scrollY", latest.scrollY)
					return nil
				}
				latest = p
			case <-tick.C:
				logger.Info("simulating", "page", page.Name, "frames", latest.frames, "scrollY", latest.scrollY)
			}
		}
	})
	return g.Wait()
}
