package island

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleVoxModel_Upscale(t *testing.T) {
	model := VoxModel{
		SizeX: 2, SizeY: 2, SizeZ: 2,
		Voxels: []Voxel{
			{X: 0, Y: 0, Z: 0, ColorIndex: 1},
		},
	}

	scaled := ScaleVoxModel(model, 2.0)

	assert.Equal(t, uint32(4), scaled.SizeX)
	assert.Equal(t, uint32(4), scaled.SizeY)
	assert.Equal(t, uint32(4), scaled.SizeZ)
	require.Len(t, scaled.Voxels, 8, "one voxel at 2x becomes 2x2x2")
	for _, v := range scaled.Voxels {
		assert.Less(t, v.X, byte(2))
		assert.Less(t, v.Y, byte(2))
		assert.Less(t, v.Z, byte(2))
		assert.Equal(t, byte(1), v.ColorIndex)
	}
}

func TestScaleVoxModel_Downscale(t *testing.T) {
	model := VoxModel{
		SizeX: 4, SizeY: 4, SizeZ: 4,
		Voxels: []Voxel{
			{X: 0, Y: 0, Z: 0, ColorIndex: 1},
			{X: 1, Y: 0, Z: 0, ColorIndex: 2},
			{X: 0, Y: 1, Z: 0, ColorIndex: 1},
			{X: 1, Y: 1, Z: 0, ColorIndex: 1},
			{X: 3, Y: 3, Z: 3, ColorIndex: 7},
		},
	}

	scaled := ScaleVoxModel(model, 0.5)

	assert.Equal(t, uint32(2), scaled.SizeX)
	require.Len(t, scaled.Voxels, 2)
	assert.Equal(t, Voxel{X: 0, Y: 0, Z: 0, ColorIndex: 1}, scaled.Voxels[0], "majority color wins")
	assert.Equal(t, Voxel{X: 1, Y: 1, Z: 1, ColorIndex: 7}, scaled.Voxels[1])
}

func TestScaleVoxModel_DownscaleTieTakesLowerIndex(t *testing.T) {
	model := VoxModel{
		SizeX: 2, SizeY: 2, SizeZ: 2,
		Voxels: []Voxel{
			{X: 0, Y: 0, Z: 0, ColorIndex: 9},
			{X: 1, Y: 0, Z: 0, ColorIndex: 4},
		},
	}
	scaled := ScaleVoxModel(model, 0.5)
	require.Len(t, scaled.Voxels, 1)
	assert.Equal(t, byte(4), scaled.Voxels[0].ColorIndex)
}

func TestScaleVoxModel_Identity(t *testing.T) {
	model := VoxModel{
		SizeX: 2, SizeY: 2, SizeZ: 2,
		Voxels: []Voxel{
			{X: 0, Y: 0, Z: 0, ColorIndex: 1},
		},
	}
	assert.Equal(t, model, ScaleVoxModel(model, 1.0))
	assert.Equal(t, model, ScaleVoxModel(model, 0))
}

func TestScaleVoxModel_ClampsGrid(t *testing.T) {
	model := VoxModel{SizeX: 200, SizeY: 1, SizeZ: 1}
	scaled := ScaleVoxModel(model, 4)
	assert.Equal(t, uint32(256), scaled.SizeX)
}

func TestParseMaterial(t *testing.T) {
	mat, err := ParseMaterial(strings.NewReader("tint: \"#ff8000\"\nopacity: 0.5\nvoxel_size: 0.25\n"))
	require.NoError(t, err)
	assert.Equal(t, "#ff8000", mat.Tint)
	assert.Equal(t, float32(0.5), mat.Opacity)
	assert.Equal(t, float32(0.25), mat.VoxelSize)
	assert.Equal(t, float32(1), mat.Resolution, "unset keys keep defaults")

	mat, err = ParseMaterial(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaterial(), mat)

	_, err = ParseMaterial(strings.NewReader("shininess: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = ParseMaterial(strings.NewReader("opacity: 2\n"))
	assert.Error(t, err)

	_, err = ParseMaterial(strings.NewReader("tint: blue\n"))
	assert.Error(t, err)
}

func TestCreateVoxelModel_BuildsInstances(t *testing.T) {
	server := NewAssetServer()
	vox := &VoxFile{
		Palette: defaultPalette(),
		Models: []VoxModel{{
			SizeX: 2, SizeY: 2, SizeZ: 1,
			Voxels: []Voxel{{X: 0, Y: 0, Z: 0, ColorIndex: 1}},
		}},
	}
	vox.Palette[1] = [4]byte{255, 255, 0, 255}
	mat := DefaultMaterial()
	mat.Tint = "#ff0000"
	mat.Opacity = 0.5
	mat.VoxelSize = 1

	id, err := server.CreateVoxelModel("crate", vox, mat)
	require.NoError(t, err)

	asset, ok := server.VoxelModel(id)
	require.True(t, ok)
	assert.Equal(t, "crate", asset.Name)
	require.Len(t, asset.Voxels, 1)

	v := asset.Voxels[0]
	assert.InDelta(t, -0.5, v.Offset.X(), 1e-6)
	assert.InDelta(t, 0.5, v.Offset.Y(), 1e-6, "z-up becomes y-up")
	assert.InDelta(t, 0.5, v.Offset.Z(), 1e-6)
	assert.Equal(t, [4]float32{1, 0, 0, 0.5}, v.Color)

	_, err = server.CreateVoxelModel("empty", &VoxFile{}, mat)
	assert.ErrorIs(t, err, ErrVoxEmpty)

	_, ok = server.VoxelModel("nope")
	assert.False(t, ok)
}

func writeProp(t *testing.T, dir, name string) {
	t.Helper()
	vox := encodeVox(sizeChunk(1, 1, 1), xyziChunk(Voxel{X: 0, Y: 0, Z: 0, ColorIndex: 1}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".vox"), vox, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".mat.yaml"), []byte("voxel_size: 0.5\n"), 0o644))
}

func collectResults(t *testing.T, loader *AssetLoader) map[string]AssetResult {
	t.Helper()
	results := make(map[string]AssetResult)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res, ok := <-loader.Results():
			if !ok {
				return results
			}
			results[res.Request.Name] = res
		case <-timeout:
			t.Fatal("loader did not finish")
		}
	}
}

func TestAssetLoader_DeliversEveryResult(t *testing.T) {
	dir := t.TempDir()
	writeProp(t, dir, "coral")
	writeProp(t, dir, "boat")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lighthouse.vox"), []byte("garbage!"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lighthouse.mat.yaml"), nil, 0o644))

	loader := NewAssetLoader(2)
	loader.Start(context.Background(), PropRequests(dir, []string{"coral", "boat", "lighthouse", "campfire"}))
	results := collectResults(t, loader)

	require.Len(t, results, 4)
	assert.NoError(t, results["coral"].Err)
	assert.NoError(t, results["boat"].Err)
	assert.Equal(t, float32(0.5), results["boat"].Material.VoxelSize)
	assert.ErrorIs(t, results["lighthouse"].Err, ErrNotVox)
	assert.ErrorIs(t, results["campfire"].Err, os.ErrNotExist, "missing material file")
}

func TestAssetLoader_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeProp(t, dir, "coral")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader := NewAssetLoader(1)
	loader.Start(ctx, PropRequests(dir, []string{"coral"}))

	results := collectResults(t, loader)
	assert.ErrorIs(t, results["coral"].Err, context.Canceled)
}

func newAssetTestApp(t *testing.T, dir string, names []string) *App {
	t.Helper()
	cfg := sim.DefaultConfig()
	return NewAppBuilder().
		UseModules(
			LoggingModule{},
			TimeModule{Now: (&testClock{now: time.Unix(0, 0)}).Now},
			headlessInputModule{},
			FrameModule{Config: cfg, Seed: 1},
			SceneModule{Scene: IslandScene(cfg.CameraStart)},
			AssetsModule{Dir: dir, Names: names},
		).
		Build()
}

// pumpUntilDone runs frames until the loader channel has been drained and closed.
func pumpUntilDone(t *testing.T, app *App) {
	t.Helper()
	loader := Resource[AssetLoader](app)
	deadline := time.Now().Add(5 * time.Second)
	for loader.results != nil {
		require.True(t, time.Now().Before(deadline), "assets never finished loading")
		app.RunFrame()
		time.Sleep(time.Millisecond)
	}
}

func TestAssetsModule_SpawnsLoadedProps(t *testing.T) {
	dir := t.TempDir()
	writeProp(t, dir, "coral")
	writeProp(t, dir, BoatProp)

	app := newAssetTestApp(t, dir, []string{"coral", BoatProp, "campfire"})
	pumpUntilDone(t, app)
	cmd := app.Commands()

	props := map[string]mgl32.Vec3{}
	MakeQuery3[PropComponent, TransformComponent, VoxelModelComponent](cmd).Map(
		func(_ EntityId, prop *PropComponent, tr *TransformComponent, model *VoxelModelComponent) bool {
			props[prop.Name] = tr.Position
			_, ok := Resource[AssetServer](app).VoxelModel(model.Model)
			assert.True(t, ok)
			return true
		})

	assert.Len(t, props, 2, "campfire failed to load and stays absent")
	assert.Equal(t, mgl32.Vec3{30, -3, 25}, props["coral"])

	state := Resource[sim.State](app)
	assert.True(t, state.Boat.Ready())
	assert.Equal(t, float32(-2), state.Boat.BaseY)
	assert.Equal(t, 1, MakeQuery1[BoatComponent](cmd).Count())
}

func TestAssetsModule_MissingBoat(t *testing.T) {
	dir := t.TempDir()
	app := newAssetTestApp(t, dir, []string{BoatProp})

	state := Resource[sim.State](app)
	assert.Equal(t, sim.BoatPending, state.Boat.Status)

	pumpUntilDone(t, app)
	assert.Equal(t, sim.BoatMissing, state.Boat.Status)
	assert.Equal(t, 0, MakeQuery1[BoatComponent](app.Commands()).Count())
}

func TestSpawnProp_ReplacesEarlierEntity(t *testing.T) {
	dir := t.TempDir()
	writeProp(t, dir, BoatProp)

	app := newAssetTestApp(t, dir, []string{})
	pumpUntilDone(t, app)
	cmd := app.Commands()
	server := Resource[AssetServer](app)
	scene := Resource[SceneDef](app)
	state := Resource[sim.State](app)

	req := PropRequests(dir, []string{BoatProp})[0]
	for i := 0; i < 2; i++ {
		res := loadAsset(context.Background(), req)
		require.NoError(t, res.Err)
		spawnProp(cmd, server, scene, state, res)
		app.FlushCommands()
	}

	boats := 0
	MakeQuery1[PropComponent](cmd).Map(func(_ EntityId, prop *PropComponent) bool {
		if prop.Name == BoatProp {
			boats++
		}
		return true
	})
	assert.Equal(t, 1, boats)
	assert.Equal(t, 1, MakeQuery1[BoatComponent](cmd).Count())
	assert.True(t, state.Boat.Ready())
}
