package island

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderTestApp(t *testing.T) (*App, *Commands) {
	t.Helper()
	cfg := sim.DefaultConfig()
	app := NewAppBuilder().
		UseModules(SceneModule{Scene: IslandScene(cfg.CameraStart)}).
		Build()
	return app, app.Commands()
}

func testViewProj() mgl32.Mat4 {
	cam := CameraComponent{
		Position:    mgl32.Vec3{0, 2, 10},
		Orientation: mgl32.QuatIdent(),
		Fov:         90, Aspect: 16.0 / 9, Near: 0.1, Far: 1000,
	}
	return cam.ViewProjection()
}

func findBatch(batches []drawBatch, key meshKey) (drawBatch, bool) {
	for _, b := range batches {
		if b.Mesh == key {
			return b, true
		}
	}
	return drawBatch{}, false
}

func TestCollectInstances_StaticScene(t *testing.T) {
	app, cmd := newRenderTestApp(t)
	scene := Resource[SceneDef](app)

	batches := collectInstances(cmd, NewAssetServer(), testViewProj())
	require.Len(t, batches, 4, "island, sky, sun disc, water")

	island, ok := findBatch(batches, shapeMeshKey(&scene.Island.Shape))
	require.True(t, ok)
	assert.False(t, island.Transparent)
	require.Len(t, island.Instances, 1)
	assert.Equal(t, mgl32.Vec3{0, -25, 0}, island.Instances[0].Model.Col(3).Vec3())

	water, ok := findBatch(batches, shapeMeshKey(&scene.Water.Shape))
	require.True(t, ok)
	assert.True(t, water.Transparent)
	assert.True(t, water.Water)
	assert.Equal(t, instanceFlagWater, water.Instances[0].Params[0])
	assert.Equal(t, float32(0.8), water.Instances[0].Color[3])

	sky, ok := findBatch(batches, shapeMeshKey(&scene.Sky.Shape))
	require.True(t, ok)
	assert.Equal(t, instanceFlagUnlit, sky.Instances[0].Params[0])

	assert.Equal(t, water, batches[len(batches)-1], "transparent water draws last")
}

func TestCollectInstances_SmokeSkipsFadedParticles(t *testing.T) {
	_, cmd := newRenderTestApp(t)
	MakeQuery1[SmokeEmitterComponent](cmd).Map(func(_ EntityId, e *SmokeEmitterComponent) bool {
		e.Particles = []sim.SmokeParticle{
			{Position: mgl32.Vec3{8, 1, 4}, Opacity: 0.5},
			{Position: mgl32.Vec3{8, 2, 4}, Opacity: 0},
		}
		return true
	})

	batches := collectInstances(cmd, NewAssetServer(), testViewProj())
	smoke, ok := findBatch(batches, unitSphereMesh)
	require.True(t, ok)
	require.Len(t, smoke.Instances, 1)
	assert.True(t, smoke.Transparent)
	assert.Equal(t, float32(0.5), smoke.Instances[0].Color[3])
	assert.Equal(t, mgl32.Vec3{8, 1, 4}, smoke.Instances[0].Model.Col(3).Vec3())
	assert.Equal(t, 2, smoke.drawOrder())
}

func spawnTestProp(t *testing.T, cmd *Commands, server *AssetServer, position mgl32.Vec3) AssetId {
	t.Helper()
	vox := &VoxFile{
		Palette: defaultPalette(),
		Models: []VoxModel{{
			SizeX: 2, SizeY: 1, SizeZ: 1,
			Voxels: []Voxel{{X: 0, ColorIndex: 1}, {X: 1, ColorIndex: 1}},
		}},
	}
	mat := DefaultMaterial()
	mat.VoxelSize = 1
	id, err := server.CreateVoxelModel("crate", vox, mat)
	require.NoError(t, err)
	cmd.AddEntity(
		&TransformComponent{Position: position, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
		&VoxelModelComponent{Model: id},
	)
	cmd.app.FlushCommands()
	return id
}

func TestCollectInstances_VoxelProps(t *testing.T) {
	_, cmd := newRenderTestApp(t)
	server := NewAssetServer()
	spawnTestProp(t, cmd, server, mgl32.Vec3{3, 0, 6})

	batches := collectInstances(cmd, server, testViewProj())
	cubes, ok := findBatch(batches, unitCubeMesh)
	require.True(t, ok)
	require.Len(t, cubes.Instances, 2)
	assert.False(t, cubes.Transparent)

	centers := []mgl32.Vec3{cubes.Instances[0].Model.Col(3).Vec3(), cubes.Instances[1].Model.Col(3).Vec3()}
	assert.ElementsMatch(t, []mgl32.Vec3{{2.5, 0.5, 6}, {3.5, 0.5, 6}}, centers)
}

func TestCollectInstances_CullsPropsBehindCamera(t *testing.T) {
	_, cmd := newRenderTestApp(t)
	server := NewAssetServer()
	spawnTestProp(t, cmd, server, mgl32.Vec3{0, 0, 60})

	batches := collectInstances(cmd, server, testViewProj())
	_, ok := findBatch(batches, unitCubeMesh)
	assert.False(t, ok)
}

func TestCollectInstances_UnknownModelIgnored(t *testing.T) {
	_, cmd := newRenderTestApp(t)
	cmd.AddEntity(&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}}, &VoxelModelComponent{Model: "missing"})
	cmd.app.FlushCommands()

	batches := collectInstances(cmd, NewAssetServer(), testViewProj())
	_, ok := findBatch(batches, unitCubeMesh)
	assert.False(t, ok)
}

func TestBuildSceneUniforms(t *testing.T) {
	_, cmd := newRenderTestApp(t)
	MakeQuery1[WaterComponent](cmd).Map(func(_ EntityId, w *WaterComponent) bool {
		w.Time = 3
		return true
	})

	u, ok := buildSceneUniforms(cmd, 2)
	require.True(t, ok)
	assert.Equal(t, [4]float32{0, 2, 10, 1}, u.CameraPos)
	assert.Equal(t, [4]float32{3, 0.15, 12, 1.5}, u.Water)
	assert.Equal(t, hexRGBA("#000033", 1), u.Sky)
	assert.InDelta(t, -1, u.SunDirection[0], 1e-6, "sun at +x shines toward -x")
	assert.InDelta(t, 0.5, u.Ambient[0], 1e-6)
	assert.Equal(t, 160, len(toBufferBytes(u)))

	empty := NewAppBuilder().Build()
	_, ok = buildSceneUniforms(empty.Commands(), 1)
	assert.False(t, ok, "no camera, nothing to draw")
}

func TestCreateVertexBufferLayout(t *testing.T) {
	mesh := createVertexBufferLayout(meshVertex{}, wgpu.VertexStepModeVertex)
	assert.Equal(t, uint64(24), mesh.ArrayStride)
	require.Len(t, mesh.Attributes, 2)
	assert.Equal(t, wgpu.VertexAttribute{ShaderLocation: 1, Offset: 12, Format: wgpu.VertexFormatFloat32x3}, mesh.Attributes[1])

	inst := createVertexBufferLayout(instanceData{}, wgpu.VertexStepModeInstance)
	assert.Equal(t, wgpu.VertexStepModeInstance, inst.StepMode)
	assert.Equal(t, uint64(96), inst.ArrayStride)
	require.Len(t, inst.Attributes, 6)
	for col := 0; col < 4; col++ {
		assert.Equal(t, uint32(2+col), inst.Attributes[col].ShaderLocation)
		assert.Equal(t, uint64(col*16), inst.Attributes[col].Offset)
	}
	assert.Equal(t, uint32(7), inst.Attributes[5].ShaderLocation)
	assert.Equal(t, uint64(80), inst.Attributes[5].Offset)

	text := createVertexBufferLayout(TextVertex{}, wgpu.VertexStepModeVertex)
	assert.Equal(t, uint64(32), text.ArrayStride)

	assert.Panics(t, func() { createVertexBufferLayout(42, wgpu.VertexStepModeVertex) })
}

func TestReadUniformsBytes(t *testing.T) {
	type uniform struct {
		A float32
		B [2]uint32
		C mgl32.Vec3
	}
	buf := new(bytes.Buffer)
	readUniformsBytes(reflect.ValueOf(uniform{A: 1, B: [2]uint32{2, 3}, C: mgl32.Vec3{4, 5, 6}}), buf)
	assert.Equal(t, 4+8+12, buf.Len())
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, buf.Bytes()[:4])
	assert.Equal(t, []byte{2, 0, 0, 0}, buf.Bytes()[4:8])

	assert.Panics(t, func() { readUniformsBytes(reflect.ValueOf("text"), new(bytes.Buffer)) })
}

func TestAabbIntersectsFrustumClip(t *testing.T) {
	vp := testViewProj()
	assert.True(t, aabbIntersectsFrustumClip(vp, mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 2, 1}))
	assert.False(t, aabbIntersectsFrustumClip(vp, mgl32.Vec3{-1, 0, 20}, mgl32.Vec3{1, 2, 22}), "behind")
	assert.False(t, aabbIntersectsFrustumClip(vp, mgl32.Vec3{500, 0, 0}, mgl32.Vec3{502, 2, 2}), "far right")
	assert.True(t, aabbIntersectsFrustumClip(vp, mgl32.Vec3{-100, -1, -100}, mgl32.Vec3{100, 1, 100}), "straddles")
}

func TestTransformAABB(t *testing.T) {
	m := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(90)))
	lo, hi := transformAABB(m, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 1, 1})
	assert.InDeltaSlice(t, []float32{10, 0, -2}, lo[:], 1e-5)
	assert.InDeltaSlice(t, []float32{11, 1, 0}, hi[:], 1e-5)
}
