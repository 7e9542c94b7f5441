package island

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string

	// Resized is set by the framebuffer callback and cleared by the renderer once the
	// surface has been reconfigured.
	Resized bool
}

// PlatformWindowModule creates the single GLFW window shared by input and rendering.
// Install is idempotent: an existing WindowState resource is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

func NewPlatformWindow(cfg WindowConfig) PlatformWindowModule {
	width, height, title := cfg.Width, cfg.Height, cfg.Title
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Island"
	}
	return PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if Resource[WindowState](app) != nil {
		return
	}

	ws := createWindowState(m.Width, m.Height, m.Title)
	cmd.AddResources(ws)
	cmd.Logger().Infof("window %dx%d %q created", m.Width, m.Height, m.Title)

	app.UseSystem(
		System(windowCloseSystem).
			InStage(Finale).
			RunAlways(),
	)
	if app.stateful {
		app.UseSystem(
			System(windowDestroySystem).
				InState(OnEnter(StateClosing)).
				InStage(Finale),
		)
	}
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context, the surface comes from wgpu
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	ws := &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}
	if fbw, fbh := win.GetFramebufferSize(); fbw > 0 && fbh > 0 {
		ws.WindowWidth, ws.WindowHeight = fbw, fbh
	}
	win.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		ws.resize(width, height)
	})
	return ws
}

// resize records a framebuffer change. A minimized window reports 0x0 and is ignored.
func (ws *WindowState) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width == ws.WindowWidth && height == ws.WindowHeight {
		return
	}
	ws.WindowWidth = width
	ws.WindowHeight = height
	ws.Resized = true
}

func (ws *WindowState) Aspect() float32 {
	if ws.WindowHeight == 0 {
		return 1
	}
	return float32(ws.WindowWidth) / float32(ws.WindowHeight)
}

func windowCloseSystem(ws *WindowState, cmd *Commands) {
	if ws.windowGlfw.ShouldClose() {
		cmd.ChangeState(StateClosing)
	}
}

func windowDestroySystem(ws *WindowState, cmd *Commands) {
	cmd.Logger().Infof("closing window %q", ws.windowTitle)
	ws.windowGlfw.Destroy()
	glfw.Terminate()
}
