package island

import (
	"time"
)

// MaxFrameDelta bounds the step fed to the simulation after stalls such as window drags.
const MaxFrameDelta = 250 * time.Millisecond

type Time struct {
	Time time.Time
	Dt   time.Duration
}

// Seconds returns Dt in seconds, clamped to [0, MaxFrameDelta].
func (t *Time) Seconds() float64 {
	return clampDelta(t.Dt).Seconds()
}

func clampDelta(dt time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	if dt > MaxFrameDelta {
		return MaxFrameDelta
	}
	return dt
}

type TimeModule struct {
	// Now replaces the wall clock, mainly for tests.
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	now := mod.Now
	if now == nil {
		now = time.Now
	}
	cmd.AddResources(&Time{
		Time: now(),
		Dt:   0,
	})
	app.UseSystem(
		System(func(timeResource *Time) {
			t := now()
			timeResource.Dt = t.Sub(timeResource.Time)
			timeResource.Time = t
		}).
			InStage(Prelude).
			RunAlways(),
	)
}
