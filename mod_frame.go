package island

import (
	"math/rand"
	"time"

	"github.com/gekko3d/island/sim"
)

// FrameModule owns the simulation state and mirrors it into the scene entities.
// It expects TimeModule.
type FrameModule struct {
	Config sim.Config
	// Seed fixes the smoke random source; zero seeds from the clock.
	Seed int64
}

func (m FrameModule) Install(app *App, cmd *Commands) {
	seed := m.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	updater, err := sim.NewUpdater(m.Config, rand.New(rand.NewSource(seed)))
	if err != nil {
		panic(err)
	}
	state := updater.NewState()

	cmd.AddResources(updater, &state, &sim.Input{})

	app.UseSystem(
		System(frameUpdateSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(frameSyncSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func frameUpdateSystem(updater *sim.Updater, state *sim.State, in *sim.Input, t *Time) {
	*state = updater.Update(*state, t.Seconds(), *in)
}

// frameSyncSystem copies the simulation outputs onto the entities the renderer draws.
func frameSyncSystem(state *sim.State, cmd *Commands) {
	sky := colorRGBA(state.Sky, 1)
	MakeQuery2[SkyComponent, ShapeComponent](cmd).Map(
		func(_ EntityId, skyComp *SkyComponent, shape *ShapeComponent) bool {
			skyComp.Color = sky
			shape.Color = sky
			return true
		})

	MakeQuery2[LightComponent, TransformComponent](cmd).Map(
		func(_ EntityId, light *LightComponent, transform *TransformComponent) bool {
			switch light.Type {
			case LightTypeAmbient:
				light.Intensity = float32(state.Ambient)
			case LightTypeDirectional:
				light.Intensity = float32(state.SunIntensity)
				transform.Position = state.SunPosition
			}
			return true
		})

	if state.Boat.Ready() {
		MakeQuery2[BoatComponent, TransformComponent](cmd).Map(
			func(_ EntityId, _ *BoatComponent, transform *TransformComponent) bool {
				transform.Position[1] = state.Boat.Y()
				return true
			})
	}

	MakeQuery1[WaterComponent](cmd).Map(func(_ EntityId, water *WaterComponent) bool {
		water.Time = float32(state.WaterTime)
		return true
	})

	MakeQuery1[SmokeEmitterComponent](cmd).Map(func(_ EntityId, emitter *SmokeEmitterComponent) bool {
		emitter.Particles = append(emitter.Particles[:0], state.Smoke...)
		return true
	})

	MakeQuery1[CameraComponent](cmd).Map(func(_ EntityId, camera *CameraComponent) bool {
		camera.Position = state.Camera.Position
		camera.Orientation = state.Camera.Orientation
		return true
	})
}
