package island

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	instanceFlagWater float32 = 1
	instanceFlagUnlit float32 = 2
)

type instanceData struct {
	Model mgl32.Mat4 `gekko:"layout" location:"2" format:"mat4"`
	Color [4]float32 `gekko:"layout" location:"6" format:"float4"`
	// Params holds flags and emissive strength.
	Params [4]float32 `gekko:"layout" location:"7" format:"float4"`
}

// drawBatch is one instanced draw call.
type drawBatch struct {
	Mesh        meshKey
	Transparent bool
	Water       bool
	Instances   []instanceData
}

type batchKey struct {
	mesh        meshKey
	transparent bool
	water       bool
}

type batchSet struct {
	index   map[batchKey]int
	batches []drawBatch
}

func (s *batchSet) add(mesh meshKey, inst instanceData, water bool) {
	key := batchKey{mesh: mesh, transparent: water || inst.Color[3] < 1, water: water}
	i, ok := s.index[key]
	if !ok {
		i = len(s.batches)
		s.index[key] = i
		s.batches = append(s.batches, drawBatch{Mesh: mesh, Transparent: key.transparent, Water: water})
	}
	s.batches[i].Instances = append(s.batches[i].Instances, inst)
}

// collectInstances flattens the drawable entities into batches ordered opaque first,
// then water, then the remaining transparent geometry. Props outside the view
// frustum are skipped.
func collectInstances(cmd *Commands, assets *AssetServer, viewProj mgl32.Mat4) []drawBatch {
	set := batchSet{index: make(map[batchKey]int)}

	MakeQuery3[TransformComponent, ShapeComponent, WaterComponent](cmd).Map(
		func(_ EntityId, transform *TransformComponent, shape *ShapeComponent, water *WaterComponent) bool {
			var flags float32
			if water != nil {
				flags += instanceFlagWater
			}
			if shape.Unlit {
				flags += instanceFlagUnlit
			}
			set.add(shapeMeshKey(shape), instanceData{
				Model:  transform.Matrix(),
				Color:  shape.Color,
				Params: [4]float32{flags},
			}, water != nil)
			return true
		}, WaterComponent{})

	if assets != nil {
		MakeQuery2[TransformComponent, VoxelModelComponent](cmd).Map(
			func(_ EntityId, transform *TransformComponent, model *VoxelModelComponent) bool {
				asset, ok := assets.VoxelModel(model.Model)
				if !ok {
					return true
				}
				world := transform.Matrix()
				lo, hi := transformAABB(world, asset.Min, asset.Max)
				if !aabbIntersectsFrustumClip(viewProj, lo, hi) {
					return true
				}
				size := asset.Material.VoxelSize
				var flags float32
				if asset.Material.Emissive > 0 {
					flags = instanceFlagUnlit
				}
				for _, v := range asset.Voxels {
					local := mgl32.Translate3D(v.Offset.X(), v.Offset.Y(), v.Offset.Z()).
						Mul4(mgl32.Scale3D(size, size, size))
					set.add(unitCubeMesh, instanceData{
						Model:  world.Mul4(local),
						Color:  v.Color,
						Params: [4]float32{flags, asset.Material.Emissive},
					}, false)
				}
				return true
			})
	}

	MakeQuery1[SmokeEmitterComponent](cmd).Map(func(_ EntityId, emitter *SmokeEmitterComponent) bool {
		for _, p := range emitter.Particles {
			if p.Opacity <= 0 {
				continue
			}
			set.add(unitSphereMesh, instanceData{
				Model: mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).
					Mul4(mgl32.Scale3D(emitter.Size, emitter.Size, emitter.Size)),
				Color: [4]float32{emitter.Color[0], emitter.Color[1], emitter.Color[2], p.Opacity},
			}, false)
		}
		return true
	})

	batches := set.batches
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.drawOrder() != b.drawOrder() {
			return a.drawOrder() < b.drawOrder()
		}
		return a.Mesh.less(b.Mesh)
	})
	return batches
}

func (b drawBatch) drawOrder() int {
	switch {
	case !b.Transparent:
		return 0
	case b.Water:
		return 1
	}
	return 2
}

// transformAABB returns the world-space box enclosing a model-space box.
func transformAABB(m mgl32.Mat4, lo, hi mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	var outLo, outHi mgl32.Vec3
	for i := 0; i < 8; i++ {
		corner := lo
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		p := m.Mul4x1(corner.Vec4(1)).Vec3()
		if i == 0 {
			outLo, outHi = p, p
			continue
		}
		for k := 0; k < 3; k++ {
			outLo[k] = min(outLo[k], p[k])
			outHi[k] = max(outHi[k], p[k])
		}
	}
	return outLo, outHi
}

type sceneUniforms struct {
	ViewProj     mgl32.Mat4
	CameraPos    [4]float32
	SunDirection [4]float32
	SunColor     [4]float32
	Ambient      [4]float32
	Sky          [4]float32
	// Water is time, amplitude, wavelength, speed.
	Water [4]float32
}

func buildSceneUniforms(cmd *Commands, aspect float32) (sceneUniforms, bool) {
	var u sceneUniforms
	found := false
	MakeQuery1[CameraComponent](cmd).Map(func(_ EntityId, camera *CameraComponent) bool {
		cam := *camera
		cam.Aspect = aspect
		u.ViewProj = cam.ViewProjection()
		u.CameraPos = [4]float32{cam.Position.X(), cam.Position.Y(), cam.Position.Z(), 1}
		found = true
		return false
	})
	if !found {
		return u, false
	}

	lighting := collectLighting(cmd)
	u.SunDirection = [4]float32{lighting.SunDirection.X(), lighting.SunDirection.Y(), lighting.SunDirection.Z(), 0}
	u.SunColor = [4]float32{lighting.SunColor.X(), lighting.SunColor.Y(), lighting.SunColor.Z(), 1}
	u.Ambient = [4]float32{lighting.Ambient.X(), lighting.Ambient.Y(), lighting.Ambient.Z(), 1}

	MakeQuery1[SkyComponent](cmd).Map(func(_ EntityId, sky *SkyComponent) bool {
		u.Sky = sky.Color
		return false
	})
	MakeQuery1[WaterComponent](cmd).Map(func(_ EntityId, water *WaterComponent) bool {
		u.Water = [4]float32{water.Time, water.Amplitude, water.Wavelength, water.Speed}
		return false
	})
	return u, true
}
