// Package sim advances the island's per-frame simulation: time of day, sky and light
// values, camera movement, boat bobbing, water time and campfire smoke.
// It has no windowing or GPU dependencies, so every frame can be replayed headlessly.
package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Input is the snapshot of held controls for one frame.
type Input struct {
	Forward     bool
	Backward    bool
	Left        bool
	Right       bool
	FastForward bool

	// Locked is true while the pointer is captured; movement is ignored otherwise.
	Locked bool
}

type Camera struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

type BoatStatus int

const (
	// BoatPending means the boat model is still loading.
	BoatPending BoatStatus = iota
	BoatReady
	// BoatMissing means loading failed; the boat never appears.
	BoatMissing
)

func (s BoatStatus) String() string {
	switch s {
	case BoatPending:
		return "pending"
	case BoatReady:
		return "ready"
	case BoatMissing:
		return "missing"
	}
	return "unknown"
}

// BoatHandle is the optional boat. Only a ready handle is animated.
type BoatHandle struct {
	Status BoatStatus
	BaseY  float32
	Offset float32
}

func (b BoatHandle) Ready() bool { return b.Status == BoatReady }

// Y is the boat's current vertical position.
func (b BoatHandle) Y() float32 { return b.BaseY + b.Offset }

type SmokeParticle struct {
	Position mgl32.Vec3
	Opacity  float32
}

// State is everything the frame updater reads and writes.
type State struct {
	TimeOfDay float64 // [0,1): 0 midnight, 0.5 noon
	BoatTime  float64
	WaterTime float64

	Camera Camera
	Boat   BoatHandle
	Smoke  []SmokeParticle

	// Derived each frame from TimeOfDay.
	Sky          colorful.Color
	Ambient      float64
	SunIntensity float64
	SunPosition  mgl32.Vec3
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	c := s
	if s.Smoke != nil {
		c.Smoke = make([]SmokeParticle, len(s.Smoke))
		copy(c.Smoke, s.Smoke)
	}
	return c
}

// MarkBoat records the outcome of the boat model load.
func (s *State) MarkBoat(loaded bool, baseY float32) {
	if !loaded {
		s.Boat = BoatHandle{Status: BoatMissing}
		return
	}
	s.Boat = BoatHandle{Status: BoatReady, BaseY: baseY}
}

// Clock formats TimeOfDay as a 24h wall clock, "HH:MM".
func (s State) Clock() string {
	minutes := int(math.Round(s.TimeOfDay*24*60)) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
