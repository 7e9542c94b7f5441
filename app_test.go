package island

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

type frameCounter struct {
	frames int
}

func TestApp_changeState(t *testing.T) {
	app := NewAppBuilder().UseStates(StateRunning, StateClosing).Build()
	app.state = StateRunning

	app.changeState(StateClosing)
	assert.Equal(t, StateClosing, app.nextState)
	assert.True(t, app.stateTransitioning)

	app.executeChangeState(StateClosing)
	assert.Equal(t, StateClosing, app.state)
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := &MockResource1{name: "Resource1"}
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem())

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := &MockResource2{name: "Resource2"}
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem())

	assert.Panics(t, func() { app.addResources(MockResource2{}) }, "non-pointer resources are rejected")
	assert.Same(t, resource2, Resource[MockResource2](app))
}

func TestApp_SystemResolvesResourcesAndCommands(t *testing.T) {
	app := NewAppBuilder().Build()
	counter := &frameCounter{}
	app.addResources(counter)

	var gotCommands *Commands
	app.UseSystem(System(func(c *frameCounter, cmd *Commands) {
		c.frames++
		gotCommands = cmd
	}))

	app.RunFrame()
	app.RunFrame()

	assert.Equal(t, 2, counter.frames)
	require.NotNil(t, gotCommands)
	assert.Same(t, app, gotCommands.app)
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(c *frameCounter) {}))

	assert.Panics(t, func() { app.RunFrame() })
}

func TestApp_StagesRunInOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}
	app.UseSystem(System(record("render")).InStage(Render))
	app.UseSystem(System(record("update")))
	app.UseSystem(System(record("prelude")).InStage(Prelude))
	app.UseSystem(System(record("pre-update")).InStage(PreUpdate))

	app.RunFrame()

	assert.Equal(t, []string{"prelude", "pre-update", "update", "render"}, order)
}

func TestApp_StatefulRunStopsInFinalState(t *testing.T) {
	counter := &frameCounter{}
	app := NewAppBuilder().UseStates(StateRunning, StateClosing).Build()
	app.addResources(counter)

	entered, exited := 0, 0
	app.UseSystem(System(func() { entered++ }).InState(OnEnter(StateRunning)))
	app.UseSystem(System(func() { exited++ }).InState(OnExit(StateRunning)))
	app.UseSystem(System(func(c *frameCounter, cmd *Commands) {
		c.frames++
		if c.frames == 3 {
			cmd.ChangeState(StateClosing)
		}
	}).InState(OnExecute(StateRunning)))

	app.Run()

	assert.Equal(t, 3, counter.frames)
	assert.Equal(t, 1, entered)
	assert.Equal(t, 1, exited)
	assert.Equal(t, StateClosing, app.State())
}

func TestApp_CommandsFlushAfterStage(t *testing.T) {
	type Marker struct{ N int }

	app := NewAppBuilder().Build()
	seenInSameStage, seenNextStage := -1, -1

	app.UseSystem(System(func(cmd *Commands) {
		cmd.AddEntity(Marker{N: 1})
		seenInSameStage = MakeQuery1[Marker](cmd).Count()
	}).InStage(PreUpdate))
	app.UseSystem(System(func(cmd *Commands) {
		seenNextStage = MakeQuery1[Marker](cmd).Count()
	}))

	app.RunFrame()

	assert.Equal(t, 0, seenInSameStage)
	assert.Equal(t, 1, seenNextStage)
}

func TestApp_UseStage(t *testing.T) {
	custom := Stage{Name: "Custom"}
	app := NewAppBuilder().Build()
	app.UseStage(custom, AfterStage(Update))

	var order []string
	app.UseSystem(System(func() { order = append(order, "post") }).InStage(PostUpdate))
	app.UseSystem(System(func() { order = append(order, "custom") }).InStage(custom))
	app.UseSystem(System(func() { order = append(order, "update") }))
	app.RunFrame()

	assert.Equal(t, []string{"update", "custom", "post"}, order)
	assert.Panics(t, func() { app.UseStage(Stage{Name: "x"}, BeforeStage(Stage{Name: "missing"})) })
}

func TestApp_LoggerFallsBackToNop(t *testing.T) {
	var nilApp *App
	assert.NotNil(t, nilApp.Logger())

	app := NewAppBuilder().Build()
	assert.False(t, app.Logger().DebugEnabled())

	app = NewAppBuilder().UseModules(LoggingModule{Prefix: "test", Debug: true}).Build()
	assert.True(t, app.Logger().DebugEnabled())
}
