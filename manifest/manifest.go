// Package manifest contains the loader and typed model for page manifests:
// YAML descriptions of the elements on a page and the reveals, timelines,
// toggles, counters and effects that animate them.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/lumen"
)

// ErrNoElements is returned when a manifest declares no elements.
var ErrNoElements = errors.New("manifest declares no elements")

// Manifest mirrors the structure of a page manifest file.
type Manifest struct {
	// Name identifies the page in logs and CLI output.
	Name string `yaml:"name"`
	// Viewport is the initial visible area.
	Viewport Size `yaml:"viewport"`
	// DocumentHeight bounds the scroll range. 0 derives it from the
	// lowest element.
	DocumentHeight float64 `yaml:"documentHeight,omitempty"`
	// Scroll configures smooth scrolling.
	Scroll ScrollSpec `yaml:"scroll,omitempty"`
	// Stagger is the default stagger of every reveal group.
	Stagger *StaggerSpec `yaml:"stagger,omitempty"`
	// Groups overrides the stagger of named reveal groups.
	Groups map[string]StaggerSpec `yaml:"groups,omitempty"`
	// Reveal holds the defaults for element reveals.
	Reveal RevealDefaults `yaml:"reveal,omitempty"`

	Elements  []ElementSpec  `yaml:"elements"`
	Entrance  *EntranceSpec  `yaml:"entrance,omitempty"`
	Timelines []TimelineSpec `yaml:"timelines,omitempty"`
	Toggles   []ToggleSpec   `yaml:"toggles,omitempty"`
	Cart      *CartSpec      `yaml:"cart,omitempty"`
	Particles []ParticleSpec `yaml:"particles,omitempty"`
}

// Size is a width and height in pixels.
type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Box is a layout rectangle in document pixels.
type Box struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Rect converts the box to an engine rectangle.
func (b Box) Rect() lumen.Rect {
	return lumen.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// ScrollSpec configures the smooth scroller.
type ScrollSpec struct {
	Duration *Duration `yaml:"duration,omitempty"`
	Ease     string    `yaml:"ease,omitempty"`
}

// StaggerSpec configures a reveal group's stagger.
type StaggerSpec struct {
	Modulus        int      `yaml:"modulus"`
	Unit           Duration `yaml:"unit"`
	ByRegistration bool     `yaml:"byRegistration,omitempty"`
}

// Stagger converts s to an engine stagger.
func (s StaggerSpec) Stagger() lumen.Stagger {
	return lumen.Stagger{Modulus: s.Modulus, Unit: s.Unit.D(), ByRegistration: s.ByRegistration}
}

// RevealDefaults apply to every element reveal that does not override them.
type RevealDefaults struct {
	Threshold  *float64  `yaml:"threshold,omitempty"`
	RootMargin *Margin   `yaml:"rootMargin,omitempty"`
	Duration   *Duration `yaml:"duration,omitempty"`
	Ease       string    `yaml:"ease,omitempty"`
	// OffsetY is how far below its resting position a hidden element sits.
	OffsetY *float64 `yaml:"offsetY,omitempty"`
	// Class is set on an element once it is revealed. Defaults to "visible".
	Class string `yaml:"class,omitempty"`
}

// Margin grows or shrinks the viewport before intersecting, in pixels.
type Margin struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// ElementSpec declares one element.
type ElementSpec struct {
	Name   string `yaml:"name"`
	Bounds Box    `yaml:"bounds"`
	// Fixed elements are positioned against the viewport, not the document.
	Fixed       bool              `yaml:"fixed,omitempty"`
	Interactive bool              `yaml:"interactive,omitempty"`
	ZIndex      int               `yaml:"zIndex,omitempty"`
	Text        string            `yaml:"text,omitempty"`
	Data        map[string]string `yaml:"data,omitempty"`
	// Color tints the element.
	Color Color `yaml:"color,omitempty"`
	// Initial sets visual properties before anything animates them.
	Initial map[string]float64 `yaml:"initial,omitempty"`

	ScrollFlag *ScrollFlagSpec `yaml:"scrollFlag,omitempty"`
	Reveal     *RevealSpec     `yaml:"reveal,omitempty"`
	Counter    *CounterSpec    `yaml:"counter,omitempty"`
	Tilt       *TiltSpec       `yaml:"tilt,omitempty"`
	Follow     *FollowSpec     `yaml:"follow,omitempty"`
}

// ScrollFlagSpec sets Class on the element while the scroll offset is past
// Threshold.
type ScrollFlagSpec struct {
	Class     string  `yaml:"class"`
	Threshold float64 `yaml:"threshold"`
}

// RevealSpec makes the element fade and slide in on first visibility.
type RevealSpec struct {
	Group      string    `yaml:"group,omitempty"`
	Threshold  *float64  `yaml:"threshold,omitempty"`
	RootMargin *Margin   `yaml:"rootMargin,omitempty"`
	Repeatable bool      `yaml:"repeatable,omitempty"`
	Duration   *Duration `yaml:"duration,omitempty"`
	Ease       string    `yaml:"ease,omitempty"`
}

// CounterSpec counts the element's text up to Target on first visibility.
// Target is kept as text so non-numeric values degrade to 0 with a warning
// instead of failing the load.
type CounterSpec struct {
	Target   string   `yaml:"target"`
	From     float64  `yaml:"from,omitempty"`
	Duration Duration `yaml:"duration"`
	Ease     string   `yaml:"ease,omitempty"`
}

// TiltSpec enables the hover tilt.
type TiltSpec struct {
	MaxAngle float64 `yaml:"maxAngle"`
}

// FollowSpec makes the element track the pointer.
type FollowSpec struct {
	OffsetX float64 `yaml:"offsetX"`
	OffsetY float64 `yaml:"offsetY"`
}

// EntranceSpec is the fixed cascade that runs when the page starts, the
// way a loader hands off to the header and then the content.
type EntranceSpec struct {
	// After delays the whole cascade, e.g. for a loader.
	After    Duration    `yaml:"after,omitempty"`
	Duration *Duration   `yaml:"duration,omitempty"`
	Ease     string      `yaml:"ease,omitempty"`
	Steps    []EntryStep `yaml:"steps"`
}

// EntryStep reveals one element at a fixed delay.
type EntryStep struct {
	Element string   `yaml:"element"`
	Delay   Duration `yaml:"delay"`
}

// Timeline modes.
const (
	ModePlay  = "play"
	ModeScrub = "scrub"
)

// TimelineSpec declares a timeline built from sequential tweens.
type TimelineSpec struct {
	Name string `yaml:"name"`
	// Mode is "play" (time-driven, once) or "scrub" (scroll-driven).
	Mode string `yaml:"mode"`
	// Delay postpones a played timeline after the page starts.
	Delay   Duration     `yaml:"delay,omitempty"`
	Trigger *TriggerSpec `yaml:"trigger,omitempty"`
	Tweens  []TweenSpec  `yaml:"tweens"`
}

// TriggerSpec maps a scroll range to timeline progress.
type TriggerSpec struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// TweenSpec is one tween of a timeline. Duration, Stagger and Position are
// in the timeline's unit: seconds when played, progress when scrubbed.
type TweenSpec struct {
	Targets  []string           `yaml:"targets"`
	To       map[string]float64 `yaml:"to"`
	Duration float64            `yaml:"duration"`
	Ease     string             `yaml:"ease,omitempty"`
	Stagger  float64            `yaml:"stagger,omitempty"`
	Position string             `yaml:"position,omitempty"`
	Priority int                `yaml:"priority,omitempty"`
}

// ToggleSpec declares a group of mutually exclusive overlays.
type ToggleSpec struct {
	Group      string `yaml:"group"`
	LockScroll bool   `yaml:"lockScroll,omitempty"`
	// Backdrop is clicked to close the open overlay.
	Backdrop string       `yaml:"backdrop,omitempty"`
	Items    []ToggleItem `yaml:"items"`
}

// ToggleItem is one overlay and the elements that open and close it.
type ToggleItem struct {
	ID       string   `yaml:"id"`
	Panel    string   `yaml:"panel,omitempty"`
	// Triggers open the item when clicked, or close it when it is open.
	Triggers []string `yaml:"triggers,omitempty"`
	Close    string   `yaml:"close,omitempty"`
	// Fill copies trigger data into element text when the item opens,
	// keyed by element name with the data key as value.
	Fill map[string]string `yaml:"fill,omitempty"`
}

// CartSpec wires the cart badge, toast and add buttons.
type CartSpec struct {
	Badge     string       `yaml:"badge"`
	Toast     string       `yaml:"toast"`
	ToastText string       `yaml:"toastText"`
	Duration  *Duration    `yaml:"duration,omitempty"`
	Buttons   []CartButton `yaml:"buttons"`
}

// CartButton adds Product to the cart when Element is clicked.
type CartButton struct {
	Element string `yaml:"element"`
	Product string `yaml:"product"`
}

// ParticleSpec declares a particle backdrop.
type ParticleSpec struct {
	Name    string      `yaml:"name"`
	Count   int         `yaml:"count,omitempty"`
	Bounds  *Box        `yaml:"bounds,omitempty"`
	Speed   lumen.Range `yaml:"speed"`
	Size    lumen.Range `yaml:"size"`
	Alpha   lumen.Range `yaml:"alpha"`
	Twinkle float64     `yaml:"twinkle,omitempty"`
	Color   Color       `yaml:"color,omitempty"`
	Seed    uint64      `yaml:"seed,omitempty"`
}

// Duration accepts either a Go duration string ("120ms", "1.2s") or a bare
// number of milliseconds.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		ms, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: parse duration %q: %w", node.Line, node.Value, err)
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML renders the duration as a Go duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Color is a "#rrggbb" or "#rrggbbaa" hex color.
type Color struct {
	lumen.Color
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	col, err := ParseColor(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	c.Color, c.set = col, true
	return nil
}

// IsSet reports whether the manifest gave a color.
func (c Color) IsSet() bool {
	return c.set
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (lumen.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return lumen.Color{}, fmt.Errorf("parse color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return lumen.Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return lumen.Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// Parse decodes a manifest. Unknown keys are rejected so typos surface at
// load time.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks the structural rules a manifest must satisfy before it
// can be built: at least one element, unique non-empty element names and
// known timeline modes. References between sections are checked by Build,
// which skips dangling ones with a warning.
func (m *Manifest) Validate() error {
	if len(m.Elements) == 0 {
		return ErrNoElements
	}
	seen := make(map[string]struct{}, len(m.Elements))
	for i, el := range m.Elements {
		if el.Name == "" {
			return fmt.Errorf("element %d: missing name", i)
		}
		if _, dup := seen[el.Name]; dup {
			return fmt.Errorf("element %q: duplicate name", el.Name)
		}
		seen[el.Name] = struct{}{}
	}
	names := make(map[string]struct{}, len(m.Timelines))
	for _, tl := range m.Timelines {
		if _, dup := names[tl.Name]; dup {
			return fmt.Errorf("timeline %q: duplicate name", tl.Name)
		}
		names[tl.Name] = struct{}{}
		switch tl.Mode {
		case ModePlay, "":
		case ModeScrub:
			if tl.Trigger == nil {
				return fmt.Errorf("timeline %q: scrub mode needs a trigger", tl.Name)
			}
		default:
			return fmt.Errorf("timeline %q: unknown mode %q", tl.Name, tl.Mode)
		}
	}
	return nil
}

// ScrollMax returns the largest scroll offset of the page.
func (m *Manifest) ScrollMax() float64 {
	return m.ScrollMaxFor(m.Viewport.Height)
}

// ScrollMaxFor is ScrollMax for a viewport viewportHeight tall.
func (m *Manifest) ScrollMaxFor(viewportHeight float64) float64 {
	h := m.DocumentHeight
	if h <= 0 {
		for _, el := range m.Elements {
			if el.Fixed {
				continue
			}
			h = max(h, el.Bounds.Y+el.Bounds.Height)
		}
	}
	return max(h-viewportHeight, 0)
}
