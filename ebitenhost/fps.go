package ebitenhost

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsOverlay displays the current FPS and TPS. The text is refreshed every
// ~0.5 seconds.
type fpsOverlay struct {
	img        *ebiten.Image
	lastUpdate float64
	text       string
}

func (o *fpsOverlay) update(dt float64) {
	o.lastUpdate += dt
	if o.text != "" && o.lastUpdate < 0.5 {
		return
	}
	o.lastUpdate = 0
	o.text = fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
}

func (o *fpsOverlay) draw(screen *ebiten.Image) {
	if o.img == nil {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		o.img = ebiten.NewImage(100, 32)
	}
	o.img.Clear()
	// Semi-transparent background for readability
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, o.text)
	screen.DrawImage(o.img, nil)
}
