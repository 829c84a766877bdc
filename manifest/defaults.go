package manifest

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/phanxgames/lumen"
)

// Defaults fills in whatever a manifest leaves unset. Values come from
// LUMEN_* environment variables, falling back to the catalog page's tuning.
type Defaults struct {
	// StaggerModulus wraps stagger positions, from LUMEN_STAGGER_MODULUS.
	StaggerModulus int `env:"LUMEN_STAGGER_MODULUS" envDefault:"4"`
	// StaggerUnit is the delay step, from LUMEN_STAGGER_UNIT.
	StaggerUnit time.Duration `env:"LUMEN_STAGGER_UNIT" envDefault:"120ms"`
	// RevealThreshold is the visible fraction that triggers a reveal, from
	// LUMEN_REVEAL_THRESHOLD.
	RevealThreshold float64 `env:"LUMEN_REVEAL_THRESHOLD" envDefault:"0.15"`
	// RevealMarginBottom shrinks the viewport bottom for reveals, from
	// LUMEN_REVEAL_MARGIN_BOTTOM.
	RevealMarginBottom float64 `env:"LUMEN_REVEAL_MARGIN_BOTTOM" envDefault:"-40"`
	// RevealDuration is the entrance length, from LUMEN_REVEAL_DURATION.
	RevealDuration time.Duration `env:"LUMEN_REVEAL_DURATION" envDefault:"700ms"`
	// RevealEase is the entrance easing id, from LUMEN_REVEAL_EASE.
	RevealEase string `env:"LUMEN_REVEAL_EASE" envDefault:"smooth"`
	// RevealOffsetY is the hidden slide offset, from LUMEN_REVEAL_OFFSET_Y.
	RevealOffsetY float64 `env:"LUMEN_REVEAL_OFFSET_Y" envDefault:"30"`
	// TPS is the host tick rate, from LUMEN_TPS.
	TPS int `env:"LUMEN_TPS" envDefault:"60"`
	// ViewportWidth and ViewportHeight size pages whose manifest has no
	// viewport, from LUMEN_VIEWPORT_WIDTH and LUMEN_VIEWPORT_HEIGHT.
	ViewportWidth  float64 `env:"LUMEN_VIEWPORT_WIDTH" envDefault:"1280"`
	ViewportHeight float64 `env:"LUMEN_VIEWPORT_HEIGHT" envDefault:"800"`
}

// LoadDefaults reads Defaults from the process environment.
func LoadDefaults() (Defaults, error) {
	d, err := env.ParseAs[Defaults]()
	if err != nil {
		return Defaults{}, fmt.Errorf("parse LUMEN_* environment: %w", err)
	}
	return d, nil
}

// DefaultsFrom reads Defaults from vars instead of the process environment.
func DefaultsFrom(vars map[string]string) (Defaults, error) {
	var d Defaults
	if err := env.ParseWithOptions(&d, env.Options{Environment: vars}); err != nil {
		return Defaults{}, fmt.Errorf("parse LUMEN_* environment: %w", err)
	}
	return d, nil
}

// Stagger returns the default stagger.
func (d Defaults) Stagger() lumen.Stagger {
	return lumen.Stagger{Modulus: d.StaggerModulus, Unit: d.StaggerUnit}
}

// Viewport returns s with unset (non-positive) dimensions taken from d.
func (d Defaults) Viewport(s Size) Size {
	if s.Width <= 0 {
		s.Width = d.ViewportWidth
	}
	if s.Height <= 0 {
		s.Height = d.ViewportHeight
	}
	return s
}
