package sim

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Updater applies one frame of simulation. It owns the random source used for smoke
// respawns, so a seeded Updater replays identically.
type Updater struct {
	cfg   Config
	night colorful.Color
	day   colorful.Color
	smoke SmokeParams
	rng   *rand.Rand
}

func NewUpdater(cfg Config, rng *rand.Rand) (*Updater, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim config: %w", err)
	}
	night, day, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Updater{
		cfg:   cfg,
		night: night,
		day:   day,
		smoke: SmokeParams{
			Box:     SmokeBox{Origin: cfg.SmokeOrigin, Jitter: cfg.SmokeJitter},
			Rise:    cfg.SmokeRise,
			Fade:    cfg.SmokeFade,
			Initial: cfg.SmokeInitialOpacity,
		},
		rng: rng,
	}, nil
}

func (u *Updater) Config() Config { return u.cfg }

func (u *Updater) SmokeBox() SmokeBox { return u.smoke.Box }

// NewState returns the scene at midnight with the boat still loading.
func (u *Updater) NewState() State {
	s := State{
		Camera: Camera{
			Position:    u.cfg.CameraStart,
			Orientation: mgl32.QuatIdent(),
		},
		Boat:  BoatHandle{Status: BoatPending},
		Smoke: SpawnSmoke(u.cfg.SmokeCount, u.smoke, u.rng),
	}
	u.derive(&s)
	return s
}

// Update advances s by dt seconds under in and returns the next state.
// The returned state shares no memory with s.
func (u *Updater) Update(s State, dt float64, in Input) State {
	next := s.Clone()

	speed := FrameSpeed(u.cfg.MoveSpeed, dt, u.cfg.FrameBaseline)

	rate := u.cfg.NormalRate
	if in.FastForward {
		rate = u.cfg.FastRate
	}
	next.TimeOfDay = AdvanceTimeOfDay(next.TimeOfDay, dt, rate)
	u.derive(&next)

	next.Camera = MoveCamera(next.Camera, in, speed)

	if next.Boat.Ready() {
		next.BoatTime += dt
		next.Boat.Offset = float32(BoatOffset(next.BoatTime, u.cfg.BoatAmplitude, u.cfg.BoatAngularSpeed))
	}

	next.WaterTime += dt

	StepSmoke(next.Smoke, u.smoke, u.rng)

	return next
}

// derive recomputes the values that are pure functions of TimeOfDay.
func (u *Updater) derive(s *State) {
	s.Sky = SkyColor(s.TimeOfDay, u.night, u.day)
	s.Ambient = AmbientIntensity(s.Sky, u.cfg.AmbientMin, u.cfg.AmbientMax)
	s.SunIntensity = s.Ambient
	s.SunPosition = SunPosition(s.TimeOfDay, u.cfg.SunRadius)
}
