package island

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type AssetId string

type AssetServer struct {
	voxModels map[AssetId]VoxelModelAsset
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		voxModels: make(map[AssetId]VoxelModelAsset),
	}
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// AssetRequest names the geometry and material files of one prop.
type AssetRequest struct {
	Name         string
	VoxPath      string
	MaterialPath string
}

func PropRequests(dir string, names []string) []AssetRequest {
	requests := make([]AssetRequest, 0, len(names))
	for _, name := range names {
		requests = append(requests, AssetRequest{
			Name:         name,
			VoxPath:      filepath.Join(dir, name+".vox"),
			MaterialPath: filepath.Join(dir, name+".mat.yaml"),
		})
	}
	return requests
}

type AssetResult struct {
	Request  AssetRequest
	Vox      *VoxFile
	Material MaterialDef
	Err      error
}

// AssetLoader reads prop files off the frame thread. Results arrive on a channel that
// is closed once every request has completed.
type AssetLoader struct {
	Concurrency int

	results chan AssetResult
}

func NewAssetLoader(concurrency int) *AssetLoader {
	return &AssetLoader{Concurrency: concurrency}
}

func (l *AssetLoader) Start(ctx context.Context, requests []AssetRequest) {
	l.results = make(chan AssetResult, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	if l.Concurrency > 0 {
		g.SetLimit(l.Concurrency)
	}
	go func() {
		for _, req := range requests {
			g.Go(func() error {
				// a failed prop never cancels the others
				l.results <- loadAsset(ctx, req)
				return nil
			})
		}
		g.Wait()
		close(l.results)
	}()
}

func (l *AssetLoader) Results() <-chan AssetResult {
	return l.results
}

func loadAsset(ctx context.Context, req AssetRequest) AssetResult {
	res := AssetResult{Request: req}
	if res.Err = ctx.Err(); res.Err != nil {
		return res
	}
	if res.Material, res.Err = LoadMaterialFile(req.MaterialPath); res.Err != nil {
		return res
	}
	res.Vox, res.Err = LoadVoxFile(req.VoxPath)
	return res
}

// AssetsModule loads the scene props in the background and spawns each one when its
// files arrive. It requires SceneModule and FrameModule.
type AssetsModule struct {
	Dir         string
	Names       []string
	Concurrency int
}

func (m AssetsModule) Install(app *App, cmd *Commands) {
	names := m.Names
	if names == nil {
		names = PropNames
	}
	concurrency := m.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	loader := NewAssetLoader(concurrency)
	loader.Start(context.Background(), PropRequests(m.Dir, names))

	cmd.AddResources(NewAssetServer(), loader)

	app.UseSystem(
		System(assetPumpSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

// assetPumpSystem drains finished loads without blocking the frame.
func assetPumpSystem(loader *AssetLoader, server *AssetServer, scene *SceneDef, state *sim.State, cmd *Commands) {
	if loader.results == nil {
		return
	}
	for {
		select {
		case res, ok := <-loader.results:
			if !ok {
				loader.results = nil
				return
			}
			spawnProp(cmd, server, scene, state, res)
		default:
			return
		}
	}
}

func spawnProp(cmd *Commands, server *AssetServer, scene *SceneDef, state *sim.State, res AssetResult) {
	name := res.Request.Name
	err := res.Err
	var id AssetId
	if err == nil {
		id, err = server.CreateVoxelModelFromSource(name, res.Vox, res.Material, res.Request.VoxPath)
	}
	placement, placed := scene.Prop(name)
	if err == nil && !placed {
		err = fmt.Errorf("no placement in scene")
	}
	if err != nil {
		cmd.Logger().Errorf("asset %s: %v", name, err)
		if name == BoatProp {
			state.MarkBoat(false, 0)
		}
		return
	}

	scale := placement.Scale
	if scale == 0 {
		scale = 1
	}
	comps := []any{
		&TransformComponent{
			Position: placement.Position,
			Rotation: mgl32.QuatRotate(placement.Yaw, mgl32.Vec3{0, 1, 0}),
			Scale:    mgl32.Vec3{scale, scale, scale},
		},
		&VoxelModelComponent{Model: id},
		&PropComponent{Name: name},
	}
	if old, ok := findProp(cmd, name); ok {
		cmd.Logger().Warnf("asset %s loaded again, replacing entity %v", name, old)
		cmd.RemoveEntity(old)
	}
	eid := cmd.AddEntity(comps...)
	if name == BoatProp {
		cmd.AddComponents(eid, &BoatComponent{})
		state.MarkBoat(true, placement.Position.Y())
	}
	cmd.Logger().Infof("asset %s loaded", name)
}

func findProp(cmd *Commands, name string) (EntityId, bool) {
	var found EntityId
	ok := false
	MakeQuery1[PropComponent](cmd).Map(func(eid EntityId, prop *PropComponent) bool {
		if prop.Name == name {
			found, ok = eid, true
			return false
		}
		return true
	})
	return found, ok
}
