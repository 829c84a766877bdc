// Package ebitenhost runs a lumen engine inside an Ebitengine window. It
// feeds mouse, wheel and keyboard input into the engine, ticks the engine
// from a frame clock and draws elements, particle fields and click ripples
// as flat shapes.
package ebitenhost

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/lumen"
)

// Config holds window settings for Run.
type Config struct {
	// Title is the window title.
	Title string
	// Width and Height set the initial window and viewport size.
	Width, Height int
	// TPS is the tick rate. 0 uses Ebitengine's default of 60.
	TPS int
	// ShowFPS draws the FPS/TPS overlay in the top-left corner.
	ShowFPS bool
	// ShowLabels prints element names over elements without text.
	ShowLabels bool
	// Background fills the screen before drawing. Zero means near-black.
	Background lumen.Color
}

// Game implements ebiten.Game around an engine.
type Game struct {
	engine *lumen.Engine
	clock  *lumen.FrameClock
	cfg    Config

	input   inputState
	ripples []ripple
	order   []*lumen.Element
	fps     *fpsOverlay
	width   int
	height  int
}

type ripple struct {
	el    *lumen.Element
	geom  lumen.RippleGeometry
	start time.Duration
	life  time.Duration
}

// NewGame wraps e. clock must be the clock e was created with; the game
// ticks it once per Update. Width and Height default to the engine
// viewport.
func NewGame(e *lumen.Engine, clock *lumen.FrameClock, cfg Config) *Game {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		vp := e.Viewport()
		cfg.Width, cfg.Height = int(vp.Width), int(vp.Height)
	}
	if cfg.Title == "" {
		cfg.Title = "lumen"
	}
	if cfg.Background == (lumen.Color{}) {
		cfg.Background = lumen.Color{R: 0.05, G: 0.05, B: 0.07, A: 1}
	}
	g := &Game{
		engine: e,
		clock:  clock,
		cfg:    cfg,
		width:  cfg.Width,
		height: cfg.Height,
	}
	if cfg.ShowFPS {
		g.fps = &fpsOverlay{}
	}
	return g
}

// AddRipple records a click ripple on btn. It matches the signature of
// lumen.Cart.Ripples.
func (g *Game) AddRipple(btn *lumen.Element, r lumen.RippleGeometry) {
	g.ripples = append(g.ripples, ripple{el: btn, geom: r, start: g.engine.Now(), life: 600 * time.Millisecond})
}

// Update reads input, advances the clock one tick and updates the engine.
func (g *Game) Update() error {
	g.input.read(g.engine)
	g.clock.Tick()
	g.engine.Update()
	g.ripples = pruneRipples(g.ripples, g.engine.Now())
	if g.fps != nil {
		g.fps.update(g.clock.Step().Seconds())
	}
	return nil
}

// Draw renders the engine state.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.cfg.Background.RGBA())
	g.drawParticles(screen)
	g.drawElements(screen)
	g.drawRipples(screen)
	if g.fps != nil {
		g.fps.draw(screen)
	}
}

// Layout keeps the logical screen equal to the window and reports size
// changes to the engine as resizes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.engine.InjectResize(float64(outsideWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}

// Run opens a window and runs the game until the window closes.
func (g *Game) Run() error {
	if g.cfg.TPS > 0 {
		ebiten.SetTPS(g.cfg.TPS)
	}
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("run game: %w", err)
	}
	return nil
}

// Run opens a window and runs e until the window closes. e must have been
// created with clock.
func Run(e *lumen.Engine, clock *lumen.FrameClock, cfg Config) error {
	return NewGame(e, clock, cfg).Run()
}

func pruneRipples(rs []ripple, now time.Duration) []ripple {
	keep := rs[:0]
	for _, r := range rs {
		if now-r.start < r.life {
			keep = append(keep, r)
		}
	}
	clear(rs[len(keep):])
	return keep
}
