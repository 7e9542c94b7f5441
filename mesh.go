package island

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type meshVertex struct {
	Position [3]float32 `gekko:"layout" location:"0" format:"float3"`
	Normal   [3]float32 `gekko:"layout" location:"1" format:"float3"`
}

type meshData struct {
	Vertices []meshVertex
	Indices  []uint32
}

// meshKey identifies tessellated geometry. Shapes with equal dimensions share one mesh.
type meshKey struct {
	Kind         ShapeKind
	Width        float32
	Height       float32
	Depth        float32
	RadiusTop    float32
	RadiusBottom float32
	Segments     int
}

func shapeMeshKey(s *ShapeComponent) meshKey {
	return meshKey{
		Kind:         s.Kind,
		Width:        s.Width,
		Height:       s.Height,
		Depth:        s.Depth,
		RadiusTop:    s.RadiusTop,
		RadiusBottom: s.RadiusBottom,
		Segments:     s.Segments,
	}
}

var (
	// unitCubeMesh draws voxels.
	unitCubeMesh = meshKey{Kind: ShapeBox, Width: 1, Height: 1, Depth: 1}
	// unitSphereMesh draws smoke particles.
	unitSphereMesh = meshKey{Kind: ShapeSphere, RadiusTop: 1, Segments: 8}
)

func (k meshKey) less(o meshKey) bool {
	switch {
	case k.Kind != o.Kind:
		return k.Kind < o.Kind
	case k.Segments != o.Segments:
		return k.Segments < o.Segments
	case k.Width != o.Width:
		return k.Width < o.Width
	case k.Height != o.Height:
		return k.Height < o.Height
	case k.Depth != o.Depth:
		return k.Depth < o.Depth
	case k.RadiusTop != o.RadiusTop:
		return k.RadiusTop < o.RadiusTop
	}
	return k.RadiusBottom < o.RadiusBottom
}

func buildMesh(key meshKey) meshData {
	switch key.Kind {
	case ShapeCylinder:
		return cylinderMesh(key.RadiusTop, key.RadiusBottom, key.Height, max(key.Segments, 3))
	case ShapePlane:
		return planeMesh(key.Width, key.Depth, max(key.Segments, 1))
	case ShapeSphere:
		return sphereMesh(key.RadiusTop, max(key.Segments, 4))
	default:
		return boxMesh(key.Width, key.Height, key.Depth)
	}
}

func (m *meshData) quad(a, b, c, d uint32) {
	m.Indices = append(m.Indices, a, b, c, a, c, d)
}

func boxMesh(w, h, d float32) meshData {
	hw, hh, hd := w/2, h/2, d/2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -hd}, mgl32.Vec3{0, hh, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, hd}, mgl32.Vec3{0, hh, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{hw, 0, 0}, mgl32.Vec3{0, 0, -hd}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{hw, 0, 0}, mgl32.Vec3{0, 0, hd}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{hw, 0, 0}, mgl32.Vec3{0, hh, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-hw, 0, 0}, mgl32.Vec3{0, hh, 0}},
	}
	half := mgl32.Vec3{hw, hh, hd}

	var m meshData
	for _, f := range faces {
		center := mgl32.Vec3{f.normal[0] * half[0], f.normal[1] * half[1], f.normal[2] * half[2]}
		base := uint32(len(m.Vertices))
		for _, corner := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := center.Add(f.u.Mul(corner[0])).Add(f.v.Mul(corner[1]))
			m.Vertices = append(m.Vertices, meshVertex{Position: p, Normal: f.normal})
		}
		m.quad(base, base+1, base+2, base+3)
	}
	return m
}

// cylinderMesh builds a capped frustum centered on the origin.
func cylinderMesh(radiusTop, radiusBottom, height float32, segments int) meshData {
	var m meshData
	hh := height / 2
	slope := radiusBottom - radiusTop

	for i := 0; i <= segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		cos, sin := float32(math.Cos(a)), float32(math.Sin(a))
		normal := mgl32.Vec3{cos * height, slope, sin * height}.Normalize()
		m.Vertices = append(m.Vertices,
			meshVertex{Position: [3]float32{radiusTop * cos, hh, radiusTop * sin}, Normal: normal},
			meshVertex{Position: [3]float32{radiusBottom * cos, -hh, radiusBottom * sin}, Normal: normal},
		)
	}
	for i := 0; i < segments; i++ {
		t0, b0 := uint32(i*2), uint32(i*2+1)
		t1, b1 := t0+2, b0+2
		m.quad(t0, t1, b1, b0)
	}

	addCap := func(y, radius, ny float32) {
		center := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, meshVertex{Position: [3]float32{0, y, 0}, Normal: [3]float32{0, ny, 0}})
		for i := 0; i <= segments; i++ {
			a := 2 * math.Pi * float64(i) / float64(segments)
			m.Vertices = append(m.Vertices, meshVertex{
				Position: [3]float32{radius * float32(math.Cos(a)), y, radius * float32(math.Sin(a))},
				Normal:   [3]float32{0, ny, 0},
			})
		}
		for i := uint32(0); i < uint32(segments); i++ {
			if ny > 0 {
				m.Indices = append(m.Indices, center, center+i+2, center+i+1)
			} else {
				m.Indices = append(m.Indices, center, center+i+1, center+i+2)
			}
		}
	}
	addCap(hh, radiusTop, 1)
	addCap(-hh, radiusBottom, -1)
	return m
}

// planeMesh builds an XZ grid facing +Y with segments cells per side.
func planeMesh(width, depth float32, segments int) meshData {
	var m meshData
	for z := 0; z <= segments; z++ {
		for x := 0; x <= segments; x++ {
			m.Vertices = append(m.Vertices, meshVertex{
				Position: [3]float32{
					(float32(x)/float32(segments) - 0.5) * width,
					0,
					(float32(z)/float32(segments) - 0.5) * depth,
				},
				Normal: [3]float32{0, 1, 0},
			})
		}
	}
	row := uint32(segments + 1)
	for z := uint32(0); z < uint32(segments); z++ {
		for x := uint32(0); x < uint32(segments); x++ {
			i := z*row + x
			m.quad(i, i+row, i+row+1, i+1)
		}
	}
	return m
}

func sphereMesh(radius float32, segments int) meshData {
	var m meshData
	stacks := max(segments/2, 2)
	for s := 0; s <= stacks; s++ {
		phi := math.Pi * float64(s) / float64(stacks)
		for i := 0; i <= segments; i++ {
			theta := 2 * math.Pi * float64(i) / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			m.Vertices = append(m.Vertices, meshVertex{Position: n.Mul(radius), Normal: n})
		}
	}
	row := uint32(segments + 1)
	for s := uint32(0); s < uint32(stacks); s++ {
		for i := uint32(0); i < uint32(segments); i++ {
			a := s*row + i
			m.quad(a, a+1, a+row+1, a+row)
		}
	}
	return m
}
