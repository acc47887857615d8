// Package arrayio loads intensity volumes and segmentation masks that were
// persisted as NumPy arrays (.npy, .npz) or NIfTI images.
package arrayio

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio/npy"

	"ctmorphometry/internal/models"
)

// DefaultMaskEntry is the array name numpy.savez gives an unnamed argument.
const DefaultMaskEntry = "arr_0"

// LoadVolumeNPY reads a 3-D intensity volume saved with numpy.save. Any
// numeric dtype is accepted and converted to float64.
func LoadVolumeNPY(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, shape, err := readNPY(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume %s: %w", path, err)
	}
	return models.VolumeFromData(data, shape)
}

// LoadMaskNPY reads a 3-D mask saved with numpy.save. Non-zero values are
// inside the mask.
func LoadMaskNPY(path string) (*models.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, shape, err := readNPY(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask %s: %w", path, err)
	}
	return maskFromValues(data, shape)
}

// LoadMaskNPZ reads the named array from a numpy.savez / savez_compressed
// archive. An empty entry selects DefaultMaskEntry.
func LoadMaskNPZ(path, entry string) (*models.Mask, error) {
	if entry == "" {
		entry = DefaultMaskEntry
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	want := strings.TrimSuffix(entry, ".npy") + ".npy"
	for _, zf := range zr.File {
		if zf.Name != want {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, shape, err := readNPY(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from %s: %w", entry, path, err)
		}
		return maskFromValues(data, shape)
	}

	return nil, fmt.Errorf("did not find array %q in %s", entry, path)
}

func maskFromValues(data []float64, shape models.Shape) (*models.Mask, error) {
	bits := make([]bool, len(data))
	for i, v := range data {
		bits[i] = v != 0
	}
	return models.MaskFromData(bits, shape)
}

// readNPY decodes a C-ordered 3-D array of any numeric or boolean dtype.
func readNPY(r io.Reader) ([]float64, models.Shape, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, models.Shape{}, err
	}

	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, models.Shape{}, fmt.Errorf("fortran-ordered arrays are not supported")
	}
	if len(descr.Shape) != 3 {
		return nil, models.Shape{}, fmt.Errorf("expected a 3-D array, got shape %v", descr.Shape)
	}
	shape := models.Shape{Slices: descr.Shape[0], Rows: descr.Shape[1], Cols: descr.Shape[2]}

	var data []float64
	switch kind := strings.TrimLeft(descr.Type, "<>|="); kind {
	case "b1":
		data, err = readBool(nr)
	case "u1":
		data, err = readAs[uint8](nr)
	case "i1":
		data, err = readAs[int8](nr)
	case "u2":
		data, err = readAs[uint16](nr)
	case "i2":
		data, err = readAs[int16](nr)
	case "u4":
		data, err = readAs[uint32](nr)
	case "i4":
		data, err = readAs[int32](nr)
	case "u8":
		data, err = readAs[uint64](nr)
	case "i8":
		data, err = readAs[int64](nr)
	case "f4":
		data, err = readAs[float32](nr)
	case "f8":
		data, err = readAs[float64](nr)
	default:
		return nil, models.Shape{}, fmt.Errorf("unsupported dtype %q", descr.Type)
	}
	if err != nil {
		return nil, models.Shape{}, err
	}
	if len(data) != shape.Len() {
		return nil, models.Shape{}, fmt.Errorf("read %d values for shape %s", len(data), shape)
	}
	return data, shape, nil
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

func readAs[T number](nr *npy.Reader) ([]float64, error) {
	var raw []T
	if err := nr.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

func readBool(nr *npy.Reader) ([]float64, error) {
	var raw []bool
	if err := nr.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v {
			out[i] = 1
		}
	}
	return out, nil
}
