package island

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type voxChunk struct {
	id   string
	body []byte
}

func le32(values ...uint32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func encodeVox(chunks ...voxChunk) []byte {
	var children bytes.Buffer
	for _, c := range chunks {
		children.WriteString(c.id)
		children.Write(le32(uint32(len(c.body)), 0))
		children.Write(c.body)
	}
	var out bytes.Buffer
	out.WriteString("VOX ")
	out.Write(le32(150))
	out.WriteString("MAIN")
	out.Write(le32(0, uint32(children.Len())))
	out.Write(children.Bytes())
	return out.Bytes()
}

func sizeChunk(x, y, z uint32) voxChunk {
	return voxChunk{"SIZE", le32(x, y, z)}
}

func xyziChunk(voxels ...Voxel) voxChunk {
	body := le32(uint32(len(voxels)))
	for _, v := range voxels {
		body = append(body, v.X, v.Y, v.Z, v.ColorIndex)
	}
	return voxChunk{"XYZI", body}
}

func rgbaChunk(colors map[int][4]byte) voxChunk {
	body := make([]byte, 256*4)
	for i, c := range colors {
		copy(body[(i-1)*4:], c[:])
	}
	return voxChunk{"RGBA", body}
}

func voxString(s string) []byte {
	return append(le32(uint32(len(s))), s...)
}

func TestReadVox_ModelAndPalette(t *testing.T) {
	data := encodeVox(
		voxChunk{"PACK", le32(1)},
		sizeChunk(2, 3, 4),
		xyziChunk(Voxel{0, 0, 0, 1}, Voxel{1, 2, 3, 2}),
		rgbaChunk(map[int][4]byte{1: {255, 0, 0, 255}, 2: {0, 0, 255, 255}}),
	)

	vox, err := ReadVox(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 150, vox.Version)
	require.Len(t, vox.Models, 1)
	model := vox.Models[0]
	assert.Equal(t, uint32(2), model.SizeX)
	assert.Equal(t, uint32(3), model.SizeY)
	assert.Equal(t, uint32(4), model.SizeZ)
	assert.Equal(t, []Voxel{{0, 0, 0, 1}, {1, 2, 3, 2}}, model.Voxels)

	assert.Equal(t, [4]byte{255, 0, 0, 255}, vox.Palette[1])
	assert.Equal(t, [4]byte{0, 0, 255, 255}, vox.Palette[2])
}

func TestReadVox_MultipleModels(t *testing.T) {
	data := encodeVox(
		sizeChunk(1, 1, 1),
		xyziChunk(Voxel{0, 0, 0, 1}),
		sizeChunk(2, 2, 2),
		xyziChunk(Voxel{1, 1, 1, 3}, Voxel{0, 1, 0, 3}),
	)

	vox, err := ReadVox(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, vox.Models, 2)
	assert.Len(t, vox.Models[0].Voxels, 1)
	assert.Len(t, vox.Models[1].Voxels, 2)
}

func TestReadVox_Pack(t *testing.T) {
	data := encodeVox(
		voxChunk{"PACK", le32(2)},
		sizeChunk(1, 1, 1),
		xyziChunk(Voxel{0, 0, 0, 1}),
		sizeChunk(1, 1, 1),
		xyziChunk(Voxel{0, 0, 0, 2}),
	)
	vox, err := ReadVox(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, vox.Models, 2)
	assert.Equal(t, byte(2), vox.Models[1].Voxels[0].ColorIndex)

	_, err = ReadVox(bytes.NewReader(encodeVox(voxChunk{"PACK", le32(0)})))
	assert.ErrorIs(t, err, ErrVoxMalformed)
}

func TestReadVox_Material(t *testing.T) {
	body := le32(5, 2)
	body = append(body, voxString("_type")...)
	body = append(body, voxString("_emit")...)
	body = append(body, voxString("_weight")...)
	body = append(body, voxString("0.25")...)

	vox, err := ReadVox(bytes.NewReader(encodeVox(voxChunk{"MATL", body})))
	require.NoError(t, err)
	require.Len(t, vox.VoxMaterials, 1)
	mat := vox.VoxMaterials[0]
	assert.Equal(t, 5, mat.ID)
	assert.Equal(t, "_emit", mat.Property["_type"])
	assert.InDelta(t, 0.25, mat.Weight, 1e-6)
}

func TestReadVox_SkipsUnknownChunks(t *testing.T) {
	data := encodeVox(
		voxChunk{"nTRN", []byte{1, 2, 3, 4, 5}},
		sizeChunk(1, 1, 1),
		xyziChunk(Voxel{0, 0, 0, 9}),
	)
	vox, err := ReadVox(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, vox.Models, 1)
	assert.Equal(t, [4]byte{255, 255, 255, 255}, vox.Palette[9], "default palette is white")
}

func TestReadVox_Errors(t *testing.T) {
	_, err := ReadVox(bytes.NewReader([]byte("PNG\x00\x00\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrNotVox)

	_, err = ReadVox(bytes.NewReader([]byte("VO")))
	assert.ErrorIs(t, err, ErrNotVox)

	full := encodeVox(sizeChunk(1, 1, 1), xyziChunk(Voxel{0, 0, 0, 1}))
	_, err = ReadVox(bytes.NewReader(full[:len(full)-2]))
	assert.ErrorIs(t, err, ErrVoxTruncated)

	_, err = ReadVox(bytes.NewReader(encodeVox(xyziChunk(Voxel{0, 0, 0, 1}))))
	assert.ErrorIs(t, err, ErrVoxMalformed, "XYZI before SIZE")

	badCount := encodeVox(sizeChunk(1, 1, 1), voxChunk{"XYZI", le32(10)})
	_, err = ReadVox(bytes.NewReader(badCount))
	assert.ErrorIs(t, err, ErrVoxTruncated)
}

func TestLoadVoxFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cube.vox")
	require.NoError(t, os.WriteFile(path, encodeVox(sizeChunk(1, 1, 1), xyziChunk(Voxel{0, 0, 0, 1})), 0o644))

	vox, err := LoadVoxFile(path)
	require.NoError(t, err)
	assert.Len(t, vox.Models, 1)

	_, err = LoadVoxFile(filepath.Join(dir, "missing.vox"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.vox")
	require.NoError(t, os.WriteFile(bad, []byte("nope nope"), 0o644))
	_, err = LoadVoxFile(bad)
	assert.ErrorIs(t, err, ErrNotVox)
	assert.Contains(t, err.Error(), "bad.vox")
}
