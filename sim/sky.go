package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// AdvanceTimeOfDay moves t forward by dt*rate and wraps to 0 once it reaches 1.
func AdvanceTimeOfDay(t, dt, rate float64) float64 {
	t += dt * rate
	if t >= 1 {
		t = 0
	}
	return t
}

// SkyColor blends night→day over the first half of the cycle and day→night over the second.
func SkyColor(t float64, night, day colorful.Color) colorful.Color {
	if t < 0.5 {
		return night.BlendRgb(day, t*2)
	}
	return day.BlendRgb(night, (t-0.5)*2)
}

// AmbientIntensity is the mean channel of the sky color clamped to [lo, hi].
func AmbientIntensity(sky colorful.Color, lo, hi float64) float64 {
	brightness := (sky.R + sky.G + sky.B) / 3
	return math.Min(math.Max(brightness, lo), hi)
}

// SunPosition places the sun on a circle in the XY plane; t=0 is at +X on the horizon.
func SunPosition(t float64, radius float32) mgl32.Vec3 {
	angle := t * 2 * math.Pi
	return mgl32.Vec3{
		float32(math.Cos(angle)) * radius,
		float32(math.Sin(angle)) * radius,
		0,
	}
}

// BoatOffset is the vertical bob at accumulated time t.
func BoatOffset(t, amplitude, angularSpeed float64) float64 {
	return amplitude * math.Sin(t*angularSpeed)
}
