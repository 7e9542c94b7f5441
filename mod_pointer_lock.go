package island

import (
	"github.com/gekko3d/island/sim"
)

// lockSettleFrames is how many captured frames ignore mouse deltas after locking,
// while the cursor warps into relative mode.
const lockSettleFrames = 2

// Look is the accumulated camera rotation in radians.
type Look struct {
	Yaw   float32
	Pitch float32

	settle int
}

// PointerLockModule turns raw input into the frame's control snapshot. A left click
// captures the pointer and Escape releases it. It must be installed after InputModule
// and requires FrameModule.
type PointerLockModule struct{}

func (PointerLockModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Look{})
	app.UseSystem(
		System(pointerLockSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func pointerLockSystem(input *Input, look *Look, updater *sim.Updater, state *sim.State, frameIn *sim.Input, cmd *Commands) {
	justLocked := false
	switch {
	case input.MouseCaptured && input.JustPressed[KeyEscape]:
		input.MouseCaptured = false
		cmd.Logger().Debugf("pointer released")
	case !input.MouseCaptured && input.JustPressed[MouseButtonLeft]:
		input.MouseCaptured = true
		look.settle = lockSettleFrames
		justLocked = true
		cmd.Logger().Debugf("pointer locked")
	}

	if input.MouseCaptured && !justLocked {
		if look.settle > 0 {
			look.settle--
		} else {
			cfg := updater.Config()
			look.Yaw, look.Pitch = sim.Look(look.Yaw, look.Pitch,
				input.MouseDeltaX, input.MouseDeltaY, cfg.LookSensitivity, cfg.PitchLimitDegrees)
		}
	}
	state.Camera.Orientation = sim.LookOrientation(look.Yaw, look.Pitch)

	*frameIn = sim.Input{
		Forward:     input.Pressed[KeyW],
		Backward:    input.Pressed[KeyS],
		Left:        input.Pressed[KeyA],
		Right:       input.Pressed[KeyD],
		FastForward: input.Pressed[KeySpace],
		Locked:      input.MouseCaptured,
	}
}
