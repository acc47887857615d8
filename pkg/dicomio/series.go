// Package dicomio loads CT series stored as a directory of single-frame DICOM
// files and reads the voxel spacing recorded in their headers.
package dicomio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"ctmorphometry/internal/models"
)

// ErrNoSlices is returned when a series directory holds no DICOM files.
var ErrNoSlices = errors.New("no DICOM files found")

// Slice is one decoded image plane of a series.
type Slice struct {
	Path   string
	Rows   int
	Cols   int
	Pixels []float64
}

// ListSeries returns the .dcm files in dir in lexical order.
func ListSeries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSlices)
	}
	sort.Strings(files)
	return files, nil
}

// LoadSeries reads every slice of the series in dir and stacks them into a
// volume. Files are taken in reverse lexical order, so the last file becomes
// slice 0. Stored pixel values are used as-is; no rescale is applied.
func LoadSeries(dir string) (*models.Volume, error) {
	files, err := ListSeries(dir)
	if err != nil {
		return nil, err
	}

	slices := make([]Slice, 0, len(files))
	for _, path := range files {
		s, err := ReadSlice(path)
		if err != nil {
			return nil, err
		}
		slices = append(slices, s)
	}
	return stackSlices(slices)
}

// ReadSlice decodes the first frame of a single DICOM file.
func ReadSlice(path string) (Slice, error) {
	ds, err := safelyParseFile(path)
	if err != nil {
		return Slice{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	s, err := sliceFromDataset(ds)
	if err != nil {
		return Slice{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

func sliceFromDataset(ds dicom.Dataset) (Slice, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return Slice{}, fmt.Errorf("no pixel data: %w", err)
	}

	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return Slice{}, fmt.Errorf("pixel data holds no frames")
	}
	return sliceFromFrame(info.Frames[0])
}

func sliceFromFrame(fr *frame.Frame) (Slice, error) {
	if fr == nil || fr.Encapsulated {
		return Slice{}, fmt.Errorf("encapsulated pixel data is not supported")
	}
	nf, err := fr.GetNativeFrame()
	if err != nil {
		return Slice{}, err
	}

	rows, cols := nf.Rows(), nf.Cols()
	pixels := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px, err := nf.GetPixel(x, y)
			if err != nil {
				return Slice{}, err
			}
			if len(px) == 0 {
				return Slice{}, fmt.Errorf("empty pixel at (%d, %d)", x, y)
			}
			pixels[y*cols+x] = float64(px[0])
		}
	}
	return Slice{Rows: rows, Cols: cols, Pixels: pixels}, nil
}

// stackSlices builds a volume from slices given in file order, reversing it.
func stackSlices(slices []Slice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, ErrNoSlices
	}

	rows, cols := slices[0].Rows, slices[0].Cols
	vol := models.NewVolume(models.Shape{Slices: len(slices), Rows: rows, Cols: cols})
	plane := rows * cols
	for i, s := range slices {
		if s.Rows != rows || s.Cols != cols {
			return nil, fmt.Errorf("%w: slice %s is %dx%d, series is %dx%d",
				models.ErrShapeMismatch, s.Path, s.Rows, s.Cols, rows, cols)
		}
		dst := len(slices) - 1 - i
		copy(vol.Data[dst*plane:(dst+1)*plane], s.Pixels)
	}
	return vol, nil
}

// safelyParseFile turns panics raised by the DICOM parser on malformed
// input into errors.
func safelyParseFile(path string, opts ...dicom.ParseOption) (ds dicom.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	return dicom.ParseFile(path, nil, opts...)
}
