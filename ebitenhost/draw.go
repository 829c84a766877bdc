package ebitenhost

import (
	"cmp"
	"image/color"
	"math"
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/lumen"
)

// box is an element's on-screen placement for one frame.
type box struct {
	CX, CY   float64 // center in screen pixels
	W, H     float64 // size after scaling
	Rotation float64 // radians
}

// place maps el to screen space. Non-fixed elements scroll with the
// document; translation, scale and rotation apply around the center.
func place(el *lumen.Element, scrollY float64) box {
	b := el.Bounds
	cx := b.X + b.Width/2 + el.TranslateX
	cy := b.Y + b.Height/2 + el.TranslateY
	if !el.Fixed {
		cy -= scrollY
	}
	s := el.Scale
	return box{
		CX:       cx,
		CY:       cy,
		W:        b.Width * s,
		H:        b.Height * s,
		Rotation: el.Rotation * math.Pi / 180,
	}
}

// fillColor is the element tint with opacity folded into alpha.
func fillColor(el *lumen.Element) lumen.Color {
	c := el.Color
	c.A *= clampUnit(el.Opacity)
	return c
}

// shown reports whether el passes its showWhen condition. The condition is
// "class" (el itself has the class) or "name.class" (another element has
// it). Elements without a condition are always shown.
func shown(el *lumen.Element, find func(string) *lumen.Element) bool {
	cond := el.Data["showWhen"]
	if cond == "" {
		return true
	}
	target := el
	class := cond
	if name, c, ok := strings.Cut(cond, "."); ok {
		target = find(name)
		class = c
	}
	return target != nil && target.HasClass(class)
}

// drawOrder copies els into buf sorted back to front: document elements
// before fixed ones, then by ZIndex, keeping registration order on ties.
func drawOrder(els []*lumen.Element, buf []*lumen.Element) []*lumen.Element {
	buf = append(buf[:0], els...)
	slices.SortStableFunc(buf, func(a, b *lumen.Element) int {
		if a.Fixed != b.Fixed {
			if a.Fixed {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.ZIndex, b.ZIndex)
	})
	return buf
}

// rippleFrame returns the radius and alpha of a ripple t of the way through
// its life. It grows to twice the geometry size while fading out.
func rippleFrame(geom lumen.RippleGeometry, t float64) (radius, alpha float64) {
	t = clampUnit(t)
	return geom.Size * t, 0.45 * (1 - t)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a lazily-initialized 1x1 white pixel image.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

func (g *Game) drawElements(screen *ebiten.Image) {
	pixel := ensureWhitePixel()
	scrollY := g.engine.ScrollY()
	var op ebiten.DrawImageOptions
	g.order = drawOrder(g.engine.Elements(), g.order)
	for _, el := range g.order {
		if el.IsDisposed() || el.Opacity <= 0 || !shown(el, g.engine.Find) {
			continue
		}
		bx := place(el, scrollY)
		if bx.W <= 0 || bx.H <= 0 {
			continue
		}
		c := fillColor(el)

		op.GeoM.Reset()
		op.GeoM.Scale(bx.W, bx.H)
		op.GeoM.Translate(-bx.W/2, -bx.H/2)
		op.GeoM.Rotate(bx.Rotation)
		op.GeoM.Translate(bx.CX, bx.CY)
		op.ColorScale.Reset()
		op.ColorScale.Scale(float32(c.R*c.A), float32(c.G*c.A), float32(c.B*c.A), float32(c.A))
		screen.DrawImage(pixel, &op)

		label := el.Text
		if label == "" && g.cfg.ShowLabels {
			label = el.Name
		}
		if label != "" {
			ebitenutil.DebugPrintAt(screen, label, int(bx.CX-bx.W/2)+6, int(bx.CY-bx.H/2)+4)
		}
	}
}

func (g *Game) drawParticles(screen *ebiten.Image) {
	for _, f := range g.engine.ParticleFields() {
		col := f.Config().Color
		for _, p := range f.Particles() {
			c := col
			c.A *= p.Alpha
			vector.DrawFilledCircle(screen, float32(p.X), float32(p.Y), float32(p.Size), c.RGBA(), true)
		}
	}
}

func (g *Game) drawRipples(screen *ebiten.Image) {
	now := g.engine.Now()
	scrollY := g.engine.ScrollY()
	for _, r := range g.ripples {
		if r.el == nil || r.life <= 0 {
			continue
		}
		radius, alpha := rippleFrame(r.geom, float64(now-r.start)/float64(r.life))
		if radius <= 0 || alpha <= 0 {
			continue
		}
		b := r.el.Bounds
		x := b.X + r.geom.Left + r.geom.Size/2
		y := b.Y + r.geom.Top + r.geom.Size/2
		if !r.el.Fixed {
			y -= scrollY
		}
		c := lumen.Color{R: 1, G: 1, B: 1, A: alpha}
		vector.DrawFilledCircle(screen, float32(x), float32(y), float32(radius), c.RGBA(), true)
	}
}
