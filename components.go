package island

import (
	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
)

type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func (t *TransformComponent) Matrix() mgl32.Mat4 {
	rot := t.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	// ShapeCylinder is a capped frustum; RadiusTop and RadiusBottom may differ.
	ShapeCylinder
	// ShapePlane is a subdivided XZ grid centered on the origin.
	ShapePlane
	ShapeSphere
)

// ShapeComponent is primitive geometry described by its dimensions. The renderer
// tessellates it once per entity.
type ShapeComponent struct {
	Kind         ShapeKind
	Width        float32
	Height       float32
	Depth        float32
	RadiusTop    float32
	RadiusBottom float32
	Segments     int
	Color        [4]float32
	Unlit        bool
}

type VoxelModelComponent struct {
	Model AssetId
}

type CameraComponent struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Fov         float32 // vertical, degrees
	Aspect      float32
	Near        float32
	Far         float32
}

// clipDepthRemap maps OpenGL clip depth [-1,1] to the [0,1] range WebGPU expects.
var clipDepthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func (c *CameraComponent) View() mgl32.Mat4 {
	world := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).Mul4(c.Orientation.Mat4())
	return world.Inv()
}

func (c *CameraComponent) Projection() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return clipDepthRemap.Mul4(mgl32.Perspective(mgl32.DegToRad(c.Fov), aspect, c.Near, c.Far))
}

func (c *CameraComponent) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// WaterComponent drives the vertex wave displacement of a water plane.
type WaterComponent struct {
	Time       float32
	Amplitude  float32
	Wavelength float32
	Speed      float32
}

type SkyComponent struct {
	Color [4]float32
}

// BoatComponent marks the prop that bobs on the water. Its resting height lives in
// sim.BoatHandle.
type BoatComponent struct{}

type SmokeEmitterComponent struct {
	Particles []sim.SmokeParticle
	Size      float32
	Color     [3]float32
}

// PropComponent names a loaded prop model.
type PropComponent struct {
	Name string
}

// SunComponent marks the visible sun disc that follows the directional light.
type SunComponent struct{}
