package lumen

import (
	"math"
	"math/rand/v2"
)

// particle holds per-particle simulation state. Unexported; managed by
// ParticleField.
type particle struct {
	x, y   float64
	vx, vy float64
	size   float64
	alpha  float64
	phase  float64 // twinkle phase in radians
}

// Particle is the read-only view of one particle handed to renderers.
type Particle struct {
	X, Y  float64
	Size  float64
	Alpha float64
}

// FieldConfig controls a particle field.
type FieldConfig struct {
	// Count is the pool size. Defaults to 80.
	Count int
	// Bounds is the area particles drift in; they wrap at its edges.
	Bounds Rect
	// Speed is the range of drift speeds in pixels per second.
	Speed Range
	// Size is the range of particle radii in pixels.
	Size Range
	// Alpha is the range of base opacities.
	Alpha Range
	// Twinkle is the opacity oscillation frequency in radians per second.
	// 0 disables twinkling.
	Twinkle float64
	// Color tints every particle.
	Color Color
	// Seed makes the field deterministic when non-zero.
	Seed uint64
}

// ParticleField is a canvas-style backdrop of drifting particles. Motion is
// physics-free: constant velocity, wrap-around at the bounds.
type ParticleField struct {
	config    FieldConfig
	particles []particle
	rng       *rand.Rand
	active    bool
	elapsed   float64
	view      []Particle
}

// NewParticleField creates a field with a preallocated pool, already
// scattered across the bounds.
func NewParticleField(cfg FieldConfig) *ParticleField {
	n := cfg.Count
	if n <= 0 {
		n = 80
	}
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	f := &ParticleField{
		config:    cfg,
		particles: make([]particle, n),
		rng:       rng,
		active:    true,
		view:      make([]Particle, n),
	}
	for i := range f.particles {
		f.spawn(&f.particles[i])
	}
	return f
}

// Start resumes simulation.
func (f *ParticleField) Start() {
	f.active = true
}

// Stop freezes the field in place.
func (f *ParticleField) Stop() {
	f.active = false
}

// IsActive reports whether the field is simulating.
func (f *ParticleField) IsActive() bool {
	return f.active
}

// Config returns a pointer to the field's config for live tuning.
func (f *ParticleField) Config() *FieldConfig {
	return &f.config
}

// Particles returns the current particle positions. The returned slice is
// reused by the next call and MUST NOT be retained.
func (f *ParticleField) Particles() []Particle {
	for i := range f.particles {
		p := &f.particles[i]
		a := p.alpha
		if f.config.Twinkle > 0 {
			a *= 0.75 + 0.25*math.Sin(p.phase+f.elapsed*f.config.Twinkle)
		}
		f.view[i] = Particle{X: p.x, Y: p.y, Size: p.size, Alpha: a}
	}
	return f.view
}

// Resize changes the bounds and rescatters particles that fall outside.
func (f *ParticleField) Resize(bounds Rect) {
	f.config.Bounds = bounds
	for i := range f.particles {
		p := &f.particles[i]
		if !bounds.Contains(p.x, p.y) {
			f.spawn(p)
		}
	}
}

// update advances the simulation by dt seconds.
func (f *ParticleField) update(dt float64) {
	if !f.active || dt <= 0 {
		return
	}
	f.elapsed += dt
	b := f.config.Bounds
	for i := range f.particles {
		p := &f.particles[i]
		p.x += p.vx * dt
		p.y += p.vy * dt
		p.x = wrap(p.x, b.X, b.Width)
		p.y = wrap(p.y, b.Y, b.Height)
	}
}

func (f *ParticleField) spawn(p *particle) {
	b := f.config.Bounds
	p.x = b.X + f.rng.Float64()*b.Width
	p.y = b.Y + f.rng.Float64()*b.Height
	angle := f.rng.Float64() * 2 * math.Pi
	speed := f.random(f.config.Speed)
	p.vx = math.Cos(angle) * speed
	p.vy = math.Sin(angle) * speed
	p.size = f.random(f.config.Size)
	p.alpha = f.random(f.config.Alpha)
	p.phase = f.rng.Float64() * 2 * math.Pi
}

// random returns a value in [r.Min, r.Max] from the field's source.
func (f *ParticleField) random(r Range) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + f.rng.Float64()*(r.Max-r.Min)
}

// Random returns a random float64 in [Min, Max].
func (r Range) Random() float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rand.Float64()*(r.Max-r.Min)
}

// wrap folds v into [origin, origin+span).
func wrap(v, origin, span float64) float64 {
	if span <= 0 {
		return origin
	}
	v = math.Mod(v-origin, span)
	if v < 0 {
		v += span
	}
	return origin + v
}
