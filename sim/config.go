package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Config holds every tunable constant of the frame updater.
// Zero values are not meaningful; start from DefaultConfig.
type Config struct {
	MoveSpeed     float64 `yaml:"move_speed"`
	FrameBaseline float64 `yaml:"frame_baseline"` // fps the move speed is tuned for

	NormalRate float64 `yaml:"normal_rate"` // time-of-day units per second
	FastRate   float64 `yaml:"fast_rate"`   // while fast-forward is held

	NightColor string  `yaml:"night_color"`
	DayColor   string  `yaml:"day_color"`
	AmbientMin float64 `yaml:"ambient_min"`
	AmbientMax float64 `yaml:"ambient_max"`
	SunRadius  float32 `yaml:"sun_radius"`

	BoatAmplitude    float64 `yaml:"boat_amplitude"`
	BoatAngularSpeed float64 `yaml:"boat_angular_speed"`

	SmokeCount          int        `yaml:"smoke_count"`
	SmokeRise           float32    `yaml:"smoke_rise"` // per frame
	SmokeFade           float32    `yaml:"smoke_fade"` // per frame
	SmokeInitialOpacity float32    `yaml:"smoke_initial_opacity"`
	SmokeOrigin         mgl32.Vec3 `yaml:"smoke_origin"`
	SmokeJitter         mgl32.Vec3 `yaml:"smoke_jitter"` // half extents in x/z, upward extent in y

	CameraStart       mgl32.Vec3 `yaml:"camera_start"`
	LookSensitivity   float32    `yaml:"look_sensitivity"` // radians per pixel
	PitchLimitDegrees float32    `yaml:"pitch_limit_degrees"`
}

func DefaultConfig() Config {
	return Config{
		MoveSpeed:     0.3,
		FrameBaseline: 60,

		NormalRate: 0.01,
		FastRate:   0.1,

		NightColor: "#000033",
		DayColor:   "#87ceeb",
		AmbientMin: 0.2,
		AmbientMax: 1.0,
		SunRadius:  100,

		BoatAmplitude:    0.2,
		BoatAngularSpeed: 2,

		SmokeCount:          25,
		SmokeRise:           0.02,
		SmokeFade:           0.005,
		SmokeInitialOpacity: 0.6,
		SmokeOrigin:         mgl32.Vec3{8, 0.6, 4},
		SmokeJitter:         mgl32.Vec3{0.3, 0.2, 0.3},

		CameraStart:       mgl32.Vec3{0, 2, 10},
		LookSensitivity:   0.002,
		PitchLimitDegrees: 89,
	}
}

// Validate reports the first constant that would break an invariant.
func (c Config) Validate() error {
	if _, err := colorful.Hex(c.NightColor); err != nil {
		return fmt.Errorf("night_color %q: %w", c.NightColor, err)
	}
	if _, err := colorful.Hex(c.DayColor); err != nil {
		return fmt.Errorf("day_color %q: %w", c.DayColor, err)
	}
	if c.NormalRate < 0 || c.FastRate < 0 {
		return fmt.Errorf("time rates must be non-negative (normal %v, fast %v)", c.NormalRate, c.FastRate)
	}
	if c.AmbientMin > c.AmbientMax {
		return fmt.Errorf("ambient_min %v exceeds ambient_max %v", c.AmbientMin, c.AmbientMax)
	}
	if c.SmokeCount < 0 {
		return fmt.Errorf("smoke_count must be non-negative, got %d", c.SmokeCount)
	}
	if c.SmokeInitialOpacity <= 0 {
		return fmt.Errorf("smoke_initial_opacity must be positive, got %v", c.SmokeInitialOpacity)
	}
	if c.SmokeFade <= 0 {
		return fmt.Errorf("smoke_fade must be positive, got %v", c.SmokeFade)
	}
	for i, j := range c.SmokeJitter {
		if j < 0 {
			return fmt.Errorf("smoke_jitter[%d] must be non-negative, got %v", i, j)
		}
	}
	return nil
}

// Palette returns the parsed night and day colors.
func (c Config) Palette() (night, day colorful.Color, err error) {
	night, err = colorful.Hex(c.NightColor)
	if err != nil {
		return night, day, fmt.Errorf("night_color %q: %w", c.NightColor, err)
	}
	day, err = colorful.Hex(c.DayColor)
	if err != nil {
		return night, day, fmt.Errorf("day_color %q: %w", c.DayColor, err)
	}
	return night, day, nil
}
