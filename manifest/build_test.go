package manifest

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/lumen"
)

const frame = 16 * time.Millisecond

func buildSample(t *testing.T, name string) (*Page, *lumen.FakeClock) {
	t.Helper()
	m, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	clock := &lumen.FakeClock{}
	p, err := Build(m, BuildOptions{Clock: clock})
	require.NoError(t, err)
	require.Empty(t, p.Skipped)
	return p, clock
}

// run advances the page in frame steps for d.
func run(p *Page, clock *lumen.FakeClock, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		clock.Advance(frame)
		p.Engine.Update()
	}
}

func TestIroncoreRevealsCardsByRegistration(t *testing.T) {
	p, clock := buildSample(t, "ironcore.yaml")
	p.Start()
	p.Engine.Scroller().Duration = 0
	p.Engine.Update()

	card := func(i int) *lumen.Element { return p.Elements["card-"+strconv.Itoa(i)] }
	for i := 1; i <= 8; i++ {
		require.False(t, card(i).HasClass("revealed"), "card-%d revealed before scrolling", i)
		require.Zero(t, card(i).Opacity, "card-%d should start hidden", i)
	}

	// Row one lies fully inside the shrunk viewport; row two starts at its
	// bottom edge.
	p.Engine.InjectScroll(600)
	clock.Advance(frame)
	p.Engine.Update()
	assert.True(t, card(1).HasClass("revealed"))
	assert.False(t, card(2).HasClass("revealed"))

	clock.Advance(120 * time.Millisecond)
	p.Engine.Update()
	assert.True(t, card(2).HasClass("revealed"))
	assert.False(t, card(3).HasClass("revealed"))

	clock.Advance(240 * time.Millisecond)
	p.Engine.Update()
	assert.True(t, card(3).HasClass("revealed"))
	assert.True(t, card(4).HasClass("revealed"))
	assert.False(t, card(5).HasClass("revealed"))

	run(p, clock, time.Second)
	for i := 1; i <= 4; i++ {
		assert.InDelta(t, 1, card(i).Opacity, 1e-6, "card-%d opacity", i)
		assert.InDelta(t, 0, card(i).TranslateY, 1e-6, "card-%d translateY", i)
	}
}

func TestIroncoreHeaderFlagAndCounters(t *testing.T) {
	p, clock := buildSample(t, "ironcore.yaml")
	p.Start()
	p.Engine.Scroller().Duration = 0
	p.Engine.Update()

	assert.Equal(t, "0", p.Elements["stat-members"].Text)
	assert.Equal(t, "0.0", p.Elements["stat-rating"].Text)

	run(p, clock, 2100*time.Millisecond)
	assert.Equal(t, "2500", p.Elements["stat-members"].Text)
	assert.Equal(t, "4.9", p.Elements["stat-rating"].Text)
	assert.Equal(t, "120", p.Elements["stat-classes"].Text)

	header := p.Elements["header"]
	assert.False(t, header.HasClass("scrolled"))
	p.Engine.InjectScroll(51)
	run(p, clock, frame)
	assert.True(t, header.HasClass("scrolled"))
	p.Engine.InjectScroll(-1)
	run(p, clock, frame)
	assert.False(t, header.HasClass("scrolled"), "exactly 50px is not past the threshold")
}

func TestIroncoreCartButtons(t *testing.T) {
	p, clock := buildSample(t, "ironcore.yaml")
	p.Start()
	p.Engine.Scroller().Duration = 0
	p.Engine.InjectScroll(600)
	run(p, clock, frame)

	// card-1-btn sits at document y 1250..1298, viewport y 650..698.
	p.Engine.InjectClick(100, 670)
	run(p, clock, frame)

	require.NotNil(t, p.Cart)
	assert.Equal(t, 1, p.Cart.Total())
	assert.Equal(t, "1", p.Elements["cart-count"].Text)
	assert.Equal(t, "Iron Gauntlets added to cart!", p.Elements["toast-text"].Text)
	assert.True(t, p.Elements["toast"].HasClass("open"))
	assert.True(t, p.Elements["card-1-btn"].HasClass("added"))

	run(p, clock, 2600*time.Millisecond)
	assert.False(t, p.Elements["toast"].HasClass("open"))
	assert.False(t, p.Elements["card-1-btn"].HasClass("added"))
}

func TestLumiereEntranceAndLoader(t *testing.T) {
	p, clock := buildSample(t, "lumiere.yaml")
	p.Start()
	p.Engine.Update()

	for _, name := range []string{"hdr", "mosaic", "hint", "ftr"} {
		require.Zero(t, p.Elements[name].Opacity, "%s should start hidden", name)
	}

	run(p, clock, 3*time.Second)
	for _, name := range []string{"hdr", "mosaic", "hint", "ftr"} {
		el := p.Elements[name]
		assert.True(t, el.HasClass(ClassVisible), name)
		assert.InDelta(t, 1, el.Opacity, 1e-6, name)
		assert.InDelta(t, 0, el.TranslateY, 1e-6, name)
	}
	assert.InDelta(t, 0, p.Elements["loader"].Opacity, 1e-6)
	require.Contains(t, p.Playbacks, "loader")
	assert.True(t, p.Playbacks["loader"].Done())

	p.Engine.InjectPointer(400, 300)
	run(p, clock, frame)
	cur := p.Elements["cur"]
	assert.Equal(t, 250.0, cur.TranslateX)
	assert.Equal(t, 150.0, cur.TranslateY)
}

func TestLumierePopout(t *testing.T) {
	p, clock := buildSample(t, "lumiere.yaml")
	p.Start()
	run(p, clock, 3*time.Second)

	pop := p.Elements["pop"]
	group := p.Toggles["pop"]
	require.NotNil(t, group)

	// Closed overlays never take clicks.
	assert.False(t, pop.Interactive)
	assert.False(t, p.Elements["pop-x"].Interactive)

	p.Engine.InjectClick(800, 200) // cell-2
	run(p, clock, frame)
	assert.True(t, pop.HasClass("open"))
	assert.Equal(t, "Glass Harbor", p.Elements["pop-title"].Text)
	assert.Equal(t, "Still water under fog.", p.Elements["pop-desc"].Text)
	assert.True(t, p.Engine.ScrollLocked())

	p.Engine.InjectScroll(300)
	run(p, clock, 1300*time.Millisecond)
	assert.Zero(t, p.Engine.ScrollY(), "scroll must be locked while the pop-out is open")

	p.Engine.InjectClick(1380, 40) // pop-x
	run(p, clock, frame)
	assert.False(t, pop.HasClass("open"))
	assert.Nil(t, group.Active())
	assert.False(t, p.Engine.ScrollLocked())

	p.Engine.InjectClick(100, 200) // cell-1
	run(p, clock, frame)
	assert.Equal(t, "Dune Light", p.Elements["pop-title"].Text)
	p.Engine.InjectClick(100, 100) // backdrop
	run(p, clock, frame)
	assert.Nil(t, group.Active())

	p.Engine.InjectClick(100, 200)
	run(p, clock, frame)
	require.NotNil(t, group.Active())
	p.Engine.InjectKey(lumen.KeyEscape)
	run(p, clock, frame)
	assert.Nil(t, group.Active())
}

func TestLumierePopoutContentKeepsItOpen(t *testing.T) {
	p, clock := buildSample(t, "lumiere.yaml")
	p.Start()
	run(p, clock, 3*time.Second)

	title := p.Elements["pop-title"]
	desc := p.Elements["pop-desc"]
	group := p.Toggles["pop"]
	assert.False(t, title.Interactive, "closed content takes no clicks")
	assert.Greater(t, title.ZIndex, p.Elements["pop"].ZIndex)

	p.Engine.InjectClick(800, 200) // cell-2
	run(p, clock, frame)
	require.NotNil(t, group.Active())
	assert.True(t, title.Interactive)
	assert.True(t, desc.Interactive)

	p.Engine.InjectClick(700, 780) // pop-title
	run(p, clock, frame)
	assert.NotNil(t, group.Active(), "clicking the title must not close the pop-out")
	p.Engine.InjectClick(700, 820) // pop-desc
	run(p, clock, frame)
	assert.NotNil(t, group.Active(), "clicking the description must not close the pop-out")

	p.Engine.InjectClick(100, 100) // backdrop
	run(p, clock, frame)
	assert.Nil(t, group.Active())
	assert.False(t, title.Interactive)
}

func TestCinematicHeroAndScrub(t *testing.T) {
	p, clock := buildSample(t, "cinematic.yaml")
	p.Start()
	p.Engine.Update()

	title := p.Elements["hero-title-1"]
	assert.Zero(t, title.Opacity)
	assert.Equal(t, 50.0, title.TranslateY)

	run(p, clock, 2*time.Second)
	assert.Equal(t, 1.0, title.Opacity)
	assert.Equal(t, 0.0, title.TranslateY)
	assert.Equal(t, 1.0, p.Elements["hero-title-2"].Opacity)
	assert.Equal(t, 0.8, p.Elements["hero-subtitle"].Opacity)
	assert.InDelta(t, 1.7, p.Timelines["hero"].Length(), 1e-9)

	p.Engine.InjectScroll(1000)
	run(p, clock, 1300*time.Millisecond)
	require.Equal(t, 1000.0, p.Engine.ScrollY())

	// Trigger 400..2400: offset 1000 is progress 0.3.
	img := p.Elements["section-image"]
	assert.InDelta(t, -90, img.TranslateY, 1e-6)
	assert.InDelta(t, 1.045, img.Scale, 1e-6)
	assert.InDelta(t, 0.3, p.Scrubs["parallax"].Progress(), 1e-9)
	assert.Equal(t, 1.0, p.Elements["section-caption"].Opacity)

	require.Contains(t, p.Particles, "dust")
	assert.Len(t, p.Particles["dust"].Particles(), 120)
	assert.Equal(t, lumen.Rect{Width: 1920, Height: 1080}, p.Particles["dust"].Config().Bounds, "defaults to the viewport")
}

func TestStartIsIdempotent(t *testing.T) {
	p, clock := buildSample(t, "lumiere.yaml")
	p.Start()
	p.Start()
	assert.Equal(t, 5, p.Engine.PendingTimers(), "four entrance steps and one delayed timeline")
	run(p, clock, 3*time.Second)
	assert.Equal(t, 0, p.Engine.PendingTimers())
}

func TestBuildSkipsDanglingReferences(t *testing.T) {
	m, err := Parse([]byte(`
name: broken
viewport: {width: 800, height: 600}
elements:
  - name: box
    bounds: {width: 100, height: 100}
    initial: {blur: 3}
    counter: {target: lots, duration: 1s}
timelines:
  - name: intro
    tweens:
      - {targets: [box, ghost], to: {opacity: 0.5, blur: 2}, duration: 1, ease: wobble}
cart:
  badge: missing-badge
  buttons: [{element: nope, product: X}]
`))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	clock := &lumen.FakeClock{}
	p, err := Build(m, BuildOptions{Clock: clock, Logger: logger})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"box: blur (unknown property)",
		"box: lots (non-numeric counter target, using 0)",
		"timeline intro: ghost (unknown element)",
		"timeline intro: blur (unknown property)",
		"timeline intro: wobble (unknown ease, using linear)",
		"cart: missing-badge (unknown element)",
		"cart: nope (unknown element)",
	}, p.Skipped)
	assert.Contains(t, buf.String(), "skipped manifest reference")
	assert.Contains(t, buf.String(), "page=broken")

	p.Start()
	run(p, clock, 1100*time.Millisecond)
	box := p.Elements["box"]
	assert.Equal(t, 0.5, box.Opacity)
	assert.Equal(t, "0", box.Text)
}

func TestBuildReturnsPositionErrors(t *testing.T) {
	m, err := Parse([]byte(`
elements: [{name: a}]
timelines:
  - name: intro
    tweens: [{targets: [a], to: {opacity: 0}, duration: 1, position: "+=soon"}]
`))
	require.NoError(t, err)
	_, err = Build(m, BuildOptions{Clock: &lumen.FakeClock{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.Contains(t, err.Error(), `timeline "intro"`)
}

func TestBuildNegativeDurationsClampToZero(t *testing.T) {
	m, err := Parse([]byte(`
elements:
  - name: a
    bounds: {width: 10, height: 10}
    reveal: {duration: -5s}
`))
	require.NoError(t, err)
	clock := &lumen.FakeClock{}
	p, err := Build(m, BuildOptions{Clock: clock})
	require.NoError(t, err)
	assert.Equal(t, []string{"a: -5s (negative duration, using 0)"}, p.Skipped)

	run(p, clock, 2*frame)
	assert.Equal(t, 1.0, p.Elements["a"].Opacity, "zero duration completes immediately")
}

func TestBuildWithoutViewportUsesDefaults(t *testing.T) {
	m, err := Parse([]byte(`
elements:
  - name: card
    bounds: {y: 300, width: 200, height: 100}
    reveal: {}
  - name: footer
    bounds: {y: 1900, width: 200, height: 100}
`))
	require.NoError(t, err)
	clock := &lumen.FakeClock{}
	p, err := Build(m, BuildOptions{Clock: clock})
	require.NoError(t, err)
	assert.Equal(t, lumen.Rect{Width: 1280, Height: 800}, p.Engine.Viewport())

	p.Start()
	run(p, clock, time.Second)
	card := p.Elements["card"]
	assert.True(t, card.HasClass("visible"), "an element inside the default viewport reveals")
	assert.Equal(t, 1.0, card.Opacity)

	p.Engine.InjectScroll(5000)
	run(p, clock, 1300*time.Millisecond)
	assert.Equal(t, 1200.0, p.Engine.ScrollY(), "scroll range uses the default viewport height")

	d, err := DefaultsFrom(map[string]string{"LUMEN_VIEWPORT_WIDTH": "375", "LUMEN_VIEWPORT_HEIGHT": "200"})
	require.NoError(t, err)
	p, err = Build(m, BuildOptions{Clock: &lumen.FakeClock{}, Defaults: &d})
	require.NoError(t, err)
	assert.Equal(t, lumen.Rect{Width: 375, Height: 200}, p.Engine.Viewport())
}
