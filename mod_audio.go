package island

import (
	"math"
	"math/rand"
	"time"

	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

const audioSampleRate = beep.SampleRate(44100)

const (
	crackleRange = 40 // world units past which the fire is inaudible
	surfRange    = 80
	surfFloor    = 0.1
)

// surfStreamer is low-passed noise under a slow swell.
type surfStreamer struct {
	rng   *rand.Rand
	rate  beep.SampleRate
	pos   int
	lp    float64
	Gain  float64
	swell float64 // seconds per wave
}

func newSurfStreamer(rate beep.SampleRate, seed int64) *surfStreamer {
	return &surfStreamer{
		rng:   rand.New(rand.NewSource(seed)),
		rate:  rate,
		swell: 7,
	}
}

func (s *surfStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(s.pos) / float64(s.rate)
		s.lp += 0.04 * (s.rng.Float64()*2 - 1 - s.lp)
		env := 0.55 + 0.45*math.Sin(2*math.Pi*t/s.swell)
		val := s.lp * env * s.Gain * 2.5
		samples[i][0] = val
		samples[i][1] = val
		s.pos++
	}
	return len(samples), true
}

func (s *surfStreamer) Err() error { return nil }

// crackleStreamer emits short decaying noise pops at random intervals.
type crackleStreamer struct {
	rng   *rand.Rand
	rate  beep.SampleRate
	decay float64
	level float64
	Gain  float64
	// Rate of pops per second.
	Pops float64
}

func newCrackleStreamer(rate beep.SampleRate, seed int64) *crackleStreamer {
	return &crackleStreamer{
		rng:   rand.New(rand.NewSource(seed)),
		rate:  rate,
		decay: math.Exp(-1 / (0.004 * float64(rate))),
		Pops:  12,
	}
}

func (c *crackleStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	p := c.Pops / float64(c.rate)
	for i := range samples {
		if c.rng.Float64() < p {
			c.level = 0.5 + 0.5*c.rng.Float64()
		}
		val := (c.rng.Float64()*2 - 1) * c.level * c.Gain
		c.level *= c.decay
		samples[i][0] = val
		samples[i][1] = val
	}
	return len(samples), true
}

func (c *crackleStreamer) Err() error { return nil }

func newVolume(s beep.Streamer, vol float64) *effects.Volume {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// AmbientAudio owns the surf and crackle voices. Gains are written on the frame thread
// and read by the speaker goroutine, so every write after Play holds speaker.Lock.
type AmbientAudio struct {
	surf    *surfStreamer
	crackle *crackleStreamer
	mixer   *beep.Mixer
	volume  *effects.Volume
	playing bool
	Muted   bool
}

func newAmbientAudio(volume float64, seed int64) *AmbientAudio {
	a := &AmbientAudio{
		surf:    newSurfStreamer(audioSampleRate, seed),
		crackle: newCrackleStreamer(audioSampleRate, seed+1),
		mixer:   &beep.Mixer{},
	}
	a.mixer.Add(a.surf, a.crackle)
	a.volume = newVolume(a.mixer, volume)
	return a
}

func (a *AmbientAudio) start() error {
	if err := speaker.Init(audioSampleRate, audioSampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(a.volume)
	a.playing = true
	return nil
}

func (a *AmbientAudio) locked(fn func()) {
	if a.playing {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}

func (a *AmbientAudio) setGains(surf, crackle float64) {
	a.locked(func() {
		a.surf.Gain = surf
		a.crackle.Gain = crackle
	})
}

func (a *AmbientAudio) toggleMute() {
	a.Muted = !a.Muted
	a.locked(func() {
		a.volume.Silent = a.Muted
	})
}

func (a *AmbientAudio) close() {
	if !a.playing {
		return
	}
	speaker.Clear()
	speaker.Close()
	a.playing = false
}

// AudioModule plays procedural surf and campfire crackle mixed by listener position and
// time of day. M toggles mute. A failed audio device leaves the scene silent.
type AudioModule struct {
	Enabled bool
	Volume  float64
	Seed    int64
}

func (m AudioModule) Install(app *App, cmd *Commands) {
	audio := newAmbientAudio(m.Volume, m.Seed)
	audio.Muted = m.Volume <= 0
	cmd.AddResources(audio)

	if !m.Enabled {
		cmd.Logger().Infof("audio disabled")
		return
	}
	if err := audio.start(); err != nil {
		cmd.Logger().Errorf("audio init failed, continuing without sound: %v", err)
		return
	}

	app.UseSystem(
		System(audioSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
	if app.stateful {
		app.UseSystem(
			System(audioReleaseSystem).
				InState(OnEnter(StateClosing)).
				InStage(PostRender),
		)
	}
}

func audioSystem(audio *AmbientAudio, input *Input, state *sim.State, scene *SceneDef, cmd *Commands) {
	if input.JustPressed[KeyM] {
		audio.toggleMute()
		cmd.Logger().Debugf("audio muted: %v", audio.Muted)
	}
	campfire, hasFire := scene.Prop("campfire")
	surf, crackle := ambientGains(state.Camera.Position, campfire.Position, state.Ambient, shoreRadius(scene))
	if !hasFire {
		crackle = 0
	}
	audio.setGains(surf, crackle)
}

func audioReleaseSystem(audio *AmbientAudio) {
	audio.close()
}

// ambientGains returns the surf and crackle gains in [0,1] for a listener at camera.
// The crackle fades with distance to the fire and is loudest at night; the surf fades
// with distance to the shoreline but never drops below a floor.
func ambientGains(camera, campfire mgl32.Vec3, ambient float64, shore float32) (surf, crackle float64) {
	night := clamp01(1 - ambient)
	near := clamp01(1 - float64(camera.Sub(campfire).Len())/crackleRange)
	crackle = near * near * night

	horizontal := mgl32.Vec2{camera.X(), camera.Z()}.Len()
	toShore := math.Abs(float64(horizontal - shore))
	surf = math.Max(surfFloor, clamp01(1-toShore/surfRange))
	return surf, crackle
}

// shoreRadius is where the water plane cuts the island's sloped side.
func shoreRadius(scene *SceneDef) float32 {
	shape := scene.Island.Shape
	if shape.Height <= 0 {
		return shape.RadiusTop
	}
	top := scene.Island.Position.Y() + shape.Height/2
	depth := top - scene.Water.Position.Y()
	frac := mgl32.Clamp(depth/shape.Height, 0, 1)
	return shape.RadiusTop + frac*(shape.RadiusBottom-shape.RadiusTop)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
