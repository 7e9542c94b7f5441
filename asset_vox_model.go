package island

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

var ErrVoxEmpty = errors.New("VOX file has no models")

// MaterialDef is the per-prop material file, <name>.mat.yaml.
type MaterialDef struct {
	Tint      string  `yaml:"tint"`
	Opacity   float32 `yaml:"opacity"`
	Emissive  float32 `yaml:"emissive"`
	VoxelSize float32 `yaml:"voxel_size"`
	// Resolution rescales the voxel grid before meshing; 1 keeps it as authored.
	Resolution float32 `yaml:"resolution"`
}

func DefaultMaterial() MaterialDef {
	return MaterialDef{
		Tint:       "#ffffff",
		Opacity:    1,
		VoxelSize:  0.1,
		Resolution: 1,
	}
}

func ParseMaterial(r io.Reader) (MaterialDef, error) {
	mat := DefaultMaterial()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mat); err != nil && !errors.Is(err, io.EOF) {
		return MaterialDef{}, err
	}
	if err := mat.Validate(); err != nil {
		return MaterialDef{}, err
	}
	return mat, nil
}

func LoadMaterialFile(path string) (MaterialDef, error) {
	file, err := os.Open(path)
	if err != nil {
		return MaterialDef{}, err
	}
	defer file.Close()

	mat, err := ParseMaterial(file)
	if err != nil {
		return MaterialDef{}, fmt.Errorf("%s: %w", path, err)
	}
	return mat, nil
}

func (m MaterialDef) Validate() error {
	if _, err := colorful.Hex(m.Tint); err != nil {
		return fmt.Errorf("tint %q: %w", m.Tint, err)
	}
	if m.Opacity < 0 || m.Opacity > 1 {
		return fmt.Errorf("opacity %v outside [0,1]", m.Opacity)
	}
	if m.Emissive < 0 {
		return fmt.Errorf("emissive %v is negative", m.Emissive)
	}
	if m.VoxelSize <= 0 {
		return fmt.Errorf("voxel_size %v must be positive", m.VoxelSize)
	}
	if m.Resolution <= 0 {
		return fmt.Errorf("resolution %v must be positive", m.Resolution)
	}
	return nil
}

// VoxelInstance is one voxel placed in model space.
type VoxelInstance struct {
	Offset mgl32.Vec3
	Color  [4]float32
}

type VoxelModelAsset struct {
	Name     string
	VoxModel VoxModel
	Material MaterialDef
	Voxels   []VoxelInstance
	// Min and Max bound the voxel cubes in model space.
	Min, Max   mgl32.Vec3
	SourcePath string
}

func (server AssetServer) CreateVoxelModel(name string, vox *VoxFile, material MaterialDef) (AssetId, error) {
	return server.CreateVoxelModelFromSource(name, vox, material, "")
}

func (server AssetServer) CreateVoxelModelFromSource(name string, vox *VoxFile, material MaterialDef, sourcePath string) (AssetId, error) {
	if len(vox.Models) == 0 {
		return "", ErrVoxEmpty
	}
	model := vox.Models[0]
	if material.Resolution != 1.0 && material.Resolution > 0 {
		model = ScaleVoxModel(model, material.Resolution)
	}
	voxels, err := buildVoxelInstances(model, &vox.Palette, material)
	if err != nil {
		return "", err
	}

	lo, hi := voxelBounds(voxels, material.VoxelSize)

	id := makeAssetId()
	server.voxModels[id] = VoxelModelAsset{
		Name:       name,
		VoxModel:   model,
		Material:   material,
		Voxels:     voxels,
		Min:        lo,
		Max:        hi,
		SourcePath: sourcePath,
	}
	return id, nil
}

func voxelBounds(voxels []VoxelInstance, size float32) (lo, hi mgl32.Vec3) {
	if len(voxels) == 0 {
		return lo, hi
	}
	half := mgl32.Vec3{size / 2, size / 2, size / 2}
	lo, hi = voxels[0].Offset.Sub(half), voxels[0].Offset.Add(half)
	for _, v := range voxels[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v.Offset[k]-half[k])
			hi[k] = max(hi[k], v.Offset[k]+half[k])
		}
	}
	return lo, hi
}

func (server AssetServer) VoxelModel(id AssetId) (VoxelModelAsset, bool) {
	asset, ok := server.voxModels[id]
	return asset, ok
}

// buildVoxelInstances converts the Z-up voxel grid into Y-up model space with the
// origin at the bottom center of the grid.
func buildVoxelInstances(model VoxModel, palette *VoxPalette, material MaterialDef) ([]VoxelInstance, error) {
	tint, err := colorful.Hex(material.Tint)
	if err != nil {
		return nil, fmt.Errorf("tint %q: %w", material.Tint, err)
	}
	size := material.VoxelSize
	halfX := float32(model.SizeX) / 2
	halfY := float32(model.SizeY) / 2

	instances := make([]VoxelInstance, 0, len(model.Voxels))
	for _, v := range model.Voxels {
		rgba := palette[v.ColorIndex]
		instances = append(instances, VoxelInstance{
			Offset: mgl32.Vec3{
				(float32(v.X) + 0.5 - halfX) * size,
				(float32(v.Z) + 0.5) * size,
				-(float32(v.Y) + 0.5 - halfY) * size,
			},
			Color: [4]float32{
				float32(rgba[0]) / 255 * float32(tint.R),
				float32(rgba[1]) / 255 * float32(tint.G),
				float32(rgba[2]) / 255 * float32(tint.B),
				material.Opacity,
			},
		})
	}
	return instances, nil
}

// maxVoxGrid is the largest grid a VOX model can address with byte coordinates.
const maxVoxGrid = 256

func ScaleVoxModel(model VoxModel, scale float32) VoxModel {
	if scale <= 0 || scale == 1.0 {
		return model
	}
	newSizeX := scaledSize(model.SizeX, scale)
	newSizeY := scaledSize(model.SizeY, scale)
	newSizeZ := scaledSize(model.SizeZ, scale)

	newVoxels := make([]Voxel, 0)

	if scale > 1.0 {
		// Upscaling
		for _, v := range model.Voxels {
			startX := uint32(float32(v.X) * scale)
			startY := uint32(float32(v.Y) * scale)
			startZ := uint32(float32(v.Z) * scale)
			endX := uint32(float32(uint32(v.X)+1) * scale)
			endY := uint32(float32(uint32(v.Y)+1) * scale)
			endZ := uint32(float32(uint32(v.Z)+1) * scale)

			for x := startX; x < endX; x++ {
				for y := startY; y < endY; y++ {
					for z := startZ; z < endZ; z++ {
						if x < newSizeX && y < newSizeY && z < newSizeZ {
							newVoxels = append(newVoxels, Voxel{
								X: byte(x), Y: byte(y), Z: byte(z),
								ColorIndex: v.ColorIndex,
							})
						}
					}
				}
			}
		}
	} else {
		// Downscaling by majority vote; ties go to the lower palette index
		type coord struct{ x, y, z uint32 }
		groups := make(map[coord]*[256]int)
		for _, v := range model.Voxels {
			c := coord{
				min(uint32(float32(v.X)*scale), newSizeX-1),
				min(uint32(float32(v.Y)*scale), newSizeY-1),
				min(uint32(float32(v.Z)*scale), newSizeZ-1),
			}
			if groups[c] == nil {
				groups[c] = new([256]int)
			}
			groups[c][v.ColorIndex]++
		}

		for c, counts := range groups {
			maxCount := 0
			var bestColor byte
			for idx, count := range counts {
				if count > maxCount {
					maxCount = count
					bestColor = byte(idx)
				}
			}
			newVoxels = append(newVoxels, Voxel{
				X: byte(c.x), Y: byte(c.y), Z: byte(c.z),
				ColorIndex: bestColor,
			})
		}
		sort.Slice(newVoxels, func(i, j int) bool {
			a, b := newVoxels[i], newVoxels[j]
			if a.Z != b.Z {
				return a.Z < b.Z
			}
			if a.Y != b.Y {
				return a.Y < b.Y
			}
			return a.X < b.X
		})
	}

	return VoxModel{
		SizeX: newSizeX, SizeY: newSizeY, SizeZ: newSizeZ,
		Voxels: newVoxels,
	}
}

func scaledSize(size uint32, scale float32) uint32 {
	n := uint32(math.Round(float64(float32(size) * scale)))
	return max(1, min(n, maxVoxGrid))
}
