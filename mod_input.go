package island

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyW int = iota
	KeyA
	KeyS
	KeyD
	KeyM
	KeySpace
	KeyEscape
	KeyF3
	MouseButtonLeft
	MouseButtonRight
	inputCount
)

type InputModule struct{}

type Input struct {
	Pressed      [inputCount]bool
	JustPressed  [inputCount]bool
	JustReleased [inputCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

// setButton records the new held state of a key or button and its edge for this frame.
func (input *Input) setButton(button int, down bool) {
	input.JustPressed[button] = down && !input.Pressed[button]
	input.JustReleased[button] = !down && input.Pressed[button]
	input.Pressed[button] = down
}

// moveMouse updates the cursor position. Deltas are only reported while captured.
func (input *Input) moveMouse(x, y float64) {
	if input.MouseCaptured {
		input.MouseDeltaX = x - input.MouseX
		input.MouseDeltaY = y - input.MouseY
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
	}
	input.MouseX = x
	input.MouseY = y
}

func inputSystem(s *WindowState, input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		input.setButton(key, s.windowGlfw.GetKey(glfwKey) == glfw.Press)
	}
	for btn, glfwBtn := range mouseButtonToGlfw {
		input.setButton(btn, s.windowGlfw.GetMouseButton(glfwBtn) == glfw.Press)
	}

	input.moveMouse(s.windowGlfw.GetCursorPos())

	if input.MouseCaptured {
		s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		s.windowGlfw.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

var keyToGlfw = map[int]glfw.Key{
	KeyW:      glfw.KeyW,
	KeyA:      glfw.KeyA,
	KeyS:      glfw.KeyS,
	KeyD:      glfw.KeyD,
	KeyM:      glfw.KeyM,
	KeySpace:  glfw.KeySpace,
	KeyEscape: glfw.KeyEscape,
	KeyF3:     glfw.KeyF3,
}

var mouseButtonToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:  glfw.MouseButtonLeft,
	MouseButtonRight: glfw.MouseButtonRight,
}
