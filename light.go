package island

import (
	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightTypeDirectional LightType = 1
	LightTypeAmbient     LightType = 3
)

// LightComponent is the ECS component for lights. Directional lights shine from their
// transform position toward the origin.
type LightComponent struct {
	Type      LightType
	Color     [3]float32 // RGB
	Intensity float32
}

// sceneLighting is what the shader needs from the light entities.
type sceneLighting struct {
	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3 // color times intensity
	Ambient      mgl32.Vec3 // color times intensity
}

func collectLighting(cmd *Commands) sceneLighting {
	lighting := sceneLighting{SunDirection: mgl32.Vec3{0, -1, 0}}
	MakeQuery2[LightComponent, TransformComponent](cmd).Map(
		func(_ EntityId, light *LightComponent, transform *TransformComponent) bool {
			color := mgl32.Vec3(light.Color).Mul(light.Intensity)
			switch light.Type {
			case LightTypeAmbient:
				lighting.Ambient = lighting.Ambient.Add(color)
			case LightTypeDirectional:
				lighting.SunColor = color
				if transform.Position.Len() > 0 {
					lighting.SunDirection = transform.Position.Normalize().Mul(-1)
				}
			}
			return true
		})
	return lighting
}
