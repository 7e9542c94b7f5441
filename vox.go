package island

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	VOXMagicNumber = "VOX "
)

var (
	ErrNotVox       = errors.New("not a valid VOX file")
	ErrVoxTruncated = errors.New("truncated VOX data")
	ErrVoxMalformed = errors.New("malformed VOX chunk")
)

type Voxel struct {
	X, Y, Z, ColorIndex byte
}

type VoxModel struct {
	SizeX, SizeY, SizeZ uint32
	Voxels              []Voxel
}

type VoxPalette [256][4]byte // RGBA colors

type VoxFile struct {
	Version      int
	Models       []VoxModel
	Palette      VoxPalette
	VoxMaterials []VoxMaterial
}

type VoxMaterial struct {
	ID       int
	Type     int
	Weight   float32
	Property map[string]string
}

func LoadVoxFile(filename string) (*VoxFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vox, err := ReadVox(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return vox, nil
}

// ReadVox parses a MagicaVoxel file. Scene graph chunks are skipped; every SIZE chunk
// starts a new model that the following XYZI chunk fills.
func ReadVox(r io.Reader) (*VoxFile, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotVox
		}
		return nil, err
	}
	if string(header[:4]) != VOXMagicNumber {
		return nil, ErrNotVox
	}

	voxFile := &VoxFile{
		Version: int(binary.LittleEndian.Uint32(header[4:8])),
		Palette: defaultPalette(),
	}

	for {
		var chunkHeader [12]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrVoxTruncated
			}
			return nil, err
		}
		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		if chunkID == "MAIN" {
			// children follow as ordinary chunks
			continue
		}

		chunkData := make([]byte, chunkSize)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%s chunk: %w", chunkID, ErrVoxTruncated)
			}
			return nil, err
		}

		if err := voxFile.readChunk(chunkID, chunkData); err != nil {
			return nil, fmt.Errorf("%s chunk: %w", chunkID, err)
		}
	}

	return voxFile, nil
}

func (voxFile *VoxFile) readChunk(id string, data []byte) error {
	switch id {
	case "PACK":
		if len(data) < 4 {
			return ErrVoxMalformed
		}
		n := binary.LittleEndian.Uint32(data[:4])
		if n == 0 || n > 1024 {
			return ErrVoxMalformed
		}
		voxFile.Models = make([]VoxModel, 0, n)
	case "SIZE":
		if len(data) < 12 {
			return ErrVoxMalformed
		}
		voxFile.Models = append(voxFile.Models, VoxModel{
			SizeX: binary.LittleEndian.Uint32(data[0:4]),
			SizeY: binary.LittleEndian.Uint32(data[4:8]),
			SizeZ: binary.LittleEndian.Uint32(data[8:12]),
		})
	case "XYZI":
		if len(voxFile.Models) == 0 || len(data) < 4 {
			return ErrVoxMalformed
		}
		model := &voxFile.Models[len(voxFile.Models)-1]
		numVoxels := int(binary.LittleEndian.Uint32(data[:4]))
		if len(data) < 4+numVoxels*4 {
			return ErrVoxTruncated
		}
		model.Voxels = make([]Voxel, numVoxels)
		for i := range model.Voxels {
			offset := 4 + i*4
			model.Voxels[i] = Voxel{
				X:          data[offset],
				Y:          data[offset+1],
				Z:          data[offset+2],
				ColorIndex: data[offset+3],
			}
		}
	case "RGBA":
		// color i of the chunk is palette index i+1
		for i := 0; i < 255 && i*4+3 < len(data); i++ {
			copy(voxFile.Palette[i+1][:], data[i*4:i*4+4])
		}
	case "MATL":
		mat, err := parseMaterial(data)
		if err != nil {
			return err
		}
		voxFile.VoxMaterials = append(voxFile.VoxMaterials, mat)
	}
	return nil
}

// chunkReader reads little-endian values from a chunk body.
type chunkReader struct {
	data []byte
}

func (c *chunkReader) int32() (int, error) {
	if len(c.data) < 4 {
		return 0, ErrVoxTruncated
	}
	v := int(int32(binary.LittleEndian.Uint32(c.data[:4])))
	c.data = c.data[4:]
	return v, nil
}

func (c *chunkReader) string() (string, error) {
	n, err := c.int32()
	if err != nil {
		return "", err
	}
	if n < 0 || len(c.data) < n {
		return "", ErrVoxTruncated
	}
	s := string(c.data[:n])
	c.data = c.data[n:]
	return s, nil
}

func parseMaterial(data []byte) (VoxMaterial, error) {
	r := &chunkReader{data: data}
	mat := VoxMaterial{
		Property: make(map[string]string),
	}

	var err error
	if mat.ID, err = r.int32(); err != nil {
		return mat, err
	}
	pairs, err := r.int32()
	if err != nil {
		return mat, err
	}

	for i := 0; i < pairs; i++ {
		key, err := r.string()
		if err != nil {
			return mat, err
		}
		value, err := r.string()
		if err != nil {
			return mat, err
		}
		mat.Property[key] = value
		if key == "_weight" {
			weight, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return mat, fmt.Errorf("material %d weight %q: %w", mat.ID, value, err)
			}
			mat.Weight = float32(weight)
		}
	}

	return mat, nil
}

func defaultPalette() VoxPalette {
	var palette VoxPalette
	for i := range palette {
		palette[i] = [4]uint8{255, 255, 255, 255} // white as fallback
	}
	return palette
}
