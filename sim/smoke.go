package sim

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// SmokeBox is the spawn volume around the campfire.
type SmokeBox struct {
	Origin mgl32.Vec3
	Jitter mgl32.Vec3
}

func (b SmokeBox) Min() mgl32.Vec3 {
	return mgl32.Vec3{b.Origin.X() - b.Jitter.X(), b.Origin.Y(), b.Origin.Z() - b.Jitter.Z()}
}

func (b SmokeBox) Max() mgl32.Vec3 {
	return b.Origin.Add(b.Jitter)
}

func (b SmokeBox) Contains(p mgl32.Vec3) bool {
	lo, hi := b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if p[i] < lo[i] || p[i] > hi[i] {
			return false
		}
	}
	return true
}

// Sample returns a uniformly random point inside the box.
func (b SmokeBox) Sample(rng *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{
		b.Origin.X() + (rng.Float32()*2-1)*b.Jitter.X(),
		b.Origin.Y() + rng.Float32()*b.Jitter.Y(),
		b.Origin.Z() + (rng.Float32()*2-1)*b.Jitter.Z(),
	}
}

// SmokeParams are the per-frame particle constants.
type SmokeParams struct {
	Box     SmokeBox
	Rise    float32
	Fade    float32
	Initial float32
}

// StepSmoke rises and fades every particle once. A particle whose opacity reaches zero is
// respawned inside the box at full opacity in the same step, so no particle is ever left
// transparent or negative.
func StepSmoke(particles []SmokeParticle, p SmokeParams, rng *rand.Rand) {
	for i := range particles {
		pt := &particles[i]
		pt.Position[1] += p.Rise
		pt.Opacity -= p.Fade
		if pt.Opacity <= 0 {
			pt.Position = p.Box.Sample(rng)
			pt.Opacity = p.Initial
		}
	}
}

// SpawnSmoke creates n particles with staggered ages so they do not all respawn together.
func SpawnSmoke(n int, p SmokeParams, rng *rand.Rand) []SmokeParticle {
	particles := make([]SmokeParticle, n)
	for i := range particles {
		opacity := p.Initial * float32(i+1) / float32(n)
		pos := p.Box.Sample(rng)
		if p.Fade > 0 {
			// height already gained while fading from Initial to opacity
			pos[1] += (p.Initial - opacity) / p.Fade * p.Rise
		}
		particles[i] = SmokeParticle{Position: pos, Opacity: opacity}
	}
	return particles
}
