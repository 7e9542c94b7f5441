package island

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// SceneDef defines the initial state of the island scene. Props are listed here but
// spawned only when their model finishes loading.
type SceneDef struct {
	Island  ShapeDef
	Water   WaterDef
	Sky     ShapeDef
	Sun     LightDef
	Ambient LightDef
	Camera  CameraDef
	Smoke   SmokeDef
	Props   []PropDef
}

type ShapeDef struct {
	Position mgl32.Vec3
	Shape    ShapeComponent
}

type WaterDef struct {
	ShapeDef
	Waves WaterComponent
}

type LightDef struct {
	Type      LightType
	Position  mgl32.Vec3
	Color     string
	Intensity float32
	// DiscRadius > 0 adds a visible sphere at the light position.
	DiscRadius float32
}

type CameraDef struct {
	Position mgl32.Vec3
	Fov      float32
	Near     float32
	Far      float32
}

type SmokeDef struct {
	Size  float32
	Color string
}

type PropDef struct {
	Name     string
	Position mgl32.Vec3
	Yaw      float32 // radians around +Y
	Scale    float32
}

// PropNames is the fixed asset set loaded at startup.
var PropNames = []string{"campfire", "coral", "beachball", "boat", "lighthouse"}

const BoatProp = "boat"

// IslandScene returns the default island layout for a camera starting at cameraStart.
func IslandScene(cameraStart mgl32.Vec3) SceneDef {
	return SceneDef{
		Island: ShapeDef{
			Position: mgl32.Vec3{0, -25, 0},
			Shape: ShapeComponent{
				Kind:         ShapeCylinder,
				RadiusTop:    50,
				RadiusBottom: 200,
				Height:       50,
				Segments:     32,
				Color:        hexRGBA("#deb887", 1),
			},
		},
		Water: WaterDef{
			ShapeDef: ShapeDef{
				Position: mgl32.Vec3{0, -2, 0},
				Shape: ShapeComponent{
					Kind:     ShapePlane,
					Width:    1000,
					Depth:    1000,
					Segments: 128,
					Color:    hexRGBA("#1ca3ec", 0.8),
				},
			},
			Waves: WaterComponent{Amplitude: 0.15, Wavelength: 12, Speed: 1.5},
		},
		Sky: ShapeDef{
			Shape: ShapeComponent{
				Kind:      ShapeSphere,
				RadiusTop: 500,
				Segments:  32,
				Color:     hexRGBA("#000033", 1),
				Unlit:     true,
			},
		},
		Sun: LightDef{
			Type:       LightTypeDirectional,
			Position:   mgl32.Vec3{100, 0, 0},
			Color:      "#ffffff",
			Intensity:  1.2,
			DiscRadius: 5,
		},
		Ambient: LightDef{
			Type:      LightTypeAmbient,
			Color:     "#ffffff",
			Intensity: 0.5,
		},
		Camera: CameraDef{
			Position: cameraStart,
			Fov:      90,
			Near:     0.1,
			Far:      1000,
		},
		Smoke: SmokeDef{
			Size:  0.25,
			Color: "#9e9e9e",
		},
		Props: []PropDef{
			{Name: "campfire", Position: mgl32.Vec3{8, 0, 4}, Scale: 1},
			{Name: "coral", Position: mgl32.Vec3{30, -3, 25}, Scale: 1},
			{Name: "beachball", Position: mgl32.Vec3{3, 0, 6}, Scale: 1},
			{Name: BoatProp, Position: mgl32.Vec3{-10, -2, -65}, Yaw: 0.6, Scale: 1},
			{Name: "lighthouse", Position: mgl32.Vec3{-25, 0, -20}, Scale: 1},
		},
	}
}

// Prop returns the placement for name.
func (s *SceneDef) Prop(name string) (PropDef, bool) {
	for _, p := range s.Props {
		if p.Name == name {
			return p, true
		}
	}
	return PropDef{}, false
}

// LoadScene spawns the static scene entities.
func LoadScene(cmd *Commands, scene *SceneDef) {
	spawnShape(cmd, scene.Island)
	spawnShape(cmd, scene.Sky, &SkyComponent{Color: scene.Sky.Shape.Color})
	spawnShape(cmd, scene.Water.ShapeDef, &scene.Water.Waves)

	spawnLight(cmd, scene.Sun)
	spawnLight(cmd, scene.Ambient)

	cmd.AddEntity(&CameraComponent{
		Position:    scene.Camera.Position,
		Orientation: mgl32.QuatIdent(),
		Fov:         scene.Camera.Fov,
		Aspect:      1,
		Near:        scene.Camera.Near,
		Far:         scene.Camera.Far,
	})

	smokeColor := hexRGBA(scene.Smoke.Color, 1)
	cmd.AddEntity(&SmokeEmitterComponent{
		Size:  scene.Smoke.Size,
		Color: [3]float32{smokeColor[0], smokeColor[1], smokeColor[2]},
	})
}

func spawnShape(cmd *Commands, def ShapeDef, extra ...any) EntityId {
	comps := []any{
		&TransformComponent{
			Position: def.Position,
			Rotation: mgl32.QuatIdent(),
			Scale:    mgl32.Vec3{1, 1, 1},
		},
		&def.Shape,
	}
	return cmd.AddEntity(append(comps, extra...)...)
}

func spawnLight(cmd *Commands, def LightDef) {
	color := hexRGBA(def.Color, 1)
	comps := []any{
		&TransformComponent{
			Position: def.Position,
			Rotation: mgl32.QuatIdent(),
			Scale:    mgl32.Vec3{1, 1, 1},
		},
		&LightComponent{
			Type:      def.Type,
			Color:     [3]float32{color[0], color[1], color[2]},
			Intensity: def.Intensity,
		},
	}
	if def.DiscRadius > 0 {
		comps = append(comps,
			&ShapeComponent{
				Kind:      ShapeSphere,
				RadiusTop: def.DiscRadius,
				Segments:  16,
				Color:     [4]float32{1, 0.95, 0.7, 1},
				Unlit:     true,
			},
			&SunComponent{},
		)
	}
	cmd.AddEntity(comps...)
}

// hexRGBA parses a #rrggbb color. Scene colors are compile-time constants, so a bad
// value is a programming error.
func hexRGBA(hex string, alpha float32) [4]float32 {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(fmt.Errorf("scene color %q: %w", hex, err))
	}
	return colorRGBA(c, alpha)
}

func colorRGBA(c colorful.Color, alpha float32) [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), alpha}
}

// SceneModule registers the scene definition as a resource and spawns its static entities.
type SceneModule struct {
	Scene SceneDef
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	scene := m.Scene
	cmd.AddResources(&scene)
	LoadScene(cmd, &scene)
}
