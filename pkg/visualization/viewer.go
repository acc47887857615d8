// Package visualization renders slices of a CT volume with the lesion mask
// drawn over them, for checking a segmentation by eye.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/measure"
)

// overlay is the colour blended over masked pixels.
var overlay = color.NRGBA{R: 255, G: 32, B: 32, A: 255}

// Viewer extracts 2D slices from a volume and its mask.
type Viewer struct {
	volume *models.Volume
	mask   *models.Mask

	// display window in raw intensity units
	low  float64
	high float64

	// alpha is the opacity of the mask overlay, 0..1
	alpha float64
}

// NewViewer creates a viewer. The display window defaults to the full
// intensity range of the volume.
func NewViewer(volume *models.Volume, mask *models.Mask) (*Viewer, error) {
	if volume == nil || mask == nil {
		return nil, fmt.Errorf("volume and mask are required")
	}
	if volume.Shape != mask.Shape {
		return nil, fmt.Errorf("%w: volume %s, mask %s", models.ErrShapeMismatch, volume.Shape, mask.Shape)
	}

	v := &Viewer{volume: volume, mask: mask, alpha: 0.5}
	v.low, v.high = intensityRange(volume.Data)
	return v, nil
}

// SetWindow sets the display window by centre and width, as on a CT console.
func (v *Viewer) SetWindow(center, width float64) {
	v.low = center - width/2
	v.high = center + width/2
}

// SetOverlayAlpha sets the opacity of the mask overlay, clamped to 0..1.
func (v *Viewer) SetOverlayAlpha(alpha float64) {
	v.alpha = math.Max(0, math.Min(1, alpha))
}

// ExtractSlice extracts the plane perpendicular to axis at position.
// x cuts across columns, y across rows and z across slices.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.NRGBA, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	shape := v.volume.Shape
	var img *image.NRGBA

	switch axis {
	case "x", "X":
		// Extract slice along the row/slice plane
		if position >= shape.Cols {
			return nil, fmt.Errorf("position %d exceeds width %d", position, shape.Cols)
		}

		img = image.NewNRGBA(image.Rect(0, 0, shape.Slices, shape.Rows))
		for r := 0; r < shape.Rows; r++ {
			for s := 0; s < shape.Slices; s++ {
				img.SetNRGBA(s, r, v.pixel(s, r, position))
			}
		}

	case "y", "Y":
		// Extract slice along the column/slice plane
		if position >= shape.Rows {
			return nil, fmt.Errorf("position %d exceeds height %d", position, shape.Rows)
		}

		img = image.NewNRGBA(image.Rect(0, 0, shape.Cols, shape.Slices))
		for s := 0; s < shape.Slices; s++ {
			for c := 0; c < shape.Cols; c++ {
				img.SetNRGBA(c, s, v.pixel(s, position, c))
			}
		}

	case "z", "Z":
		// Extract an axial slice
		if position >= shape.Slices {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, shape.Slices)
		}

		img = image.NewNRGBA(image.Rect(0, 0, shape.Cols, shape.Rows))
		for r := 0; r < shape.Rows; r++ {
			for c := 0; c < shape.Cols; c++ {
				img.SetNRGBA(c, r, v.pixel(position, r, c))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// CentralSlice returns the index of the plane perpendicular to axis halfway
// between the first and last planes the mask occupies. An empty mask yields
// the middle of the volume.
func (v *Viewer) CentralSlice(axis string) (int, error) {
	a, err := parseAxis(axis)
	if err != nil {
		return 0, err
	}

	p := measure.Scanner{}.Profile(v.mask)
	first, ok := p.First(a)
	if !ok {
		return v.volume.Shape.Dim(a) / 2, nil
	}
	last, _ := p.Last(a)
	return (first + last) / 2, nil
}

// SavePreview writes the central slice along axis, upscaled by scale with
// nearest-neighbour sampling. The format follows the file extension.
func (v *Viewer) SavePreview(axis, filename string, scale int) error {
	pos, err := v.CentralSlice(axis)
	if err != nil {
		return err
	}
	img, err := v.ExtractSlice(axis, pos)
	if err != nil {
		return err
	}
	return v.SaveSlice(img, filename, scale)
}

// SaveSlice saves an extracted slice, upscaled by scale.
func (v *Viewer) SaveSlice(img image.Image, filename string, scale int) error {
	if scale < 1 {
		scale = 1
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	b := img.Bounds()
	out := imaging.Resize(img, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	return imaging.Save(out, filename)
}

// SaveSliceSequence extracts and saves every plane along axis that contains
// part of the mask.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, scale int) error {
	a, err := parseAxis(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	p := measure.Scanner{}.Profile(v.mask)
	for pos, hit := range p.Occupied(a) {
		if !hit {
			continue
		}
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename, scale); err != nil {
			return err
		}
	}

	return nil
}

func (v *Viewer) pixel(s, r, c int) color.NRGBA {
	g := v.gray(v.volume.At(s, r, c))
	px := color.NRGBA{R: g, G: g, B: g, A: 255}
	if v.mask.At(s, r, c) {
		px.R = blend(g, overlay.R, v.alpha)
		px.G = blend(g, overlay.G, v.alpha)
		px.B = blend(g, overlay.B, v.alpha)
	}
	return px
}

// gray maps an intensity through the display window to 0..255.
func (v *Viewer) gray(x float64) uint8 {
	if v.high <= v.low {
		return 0
	}
	t := (x - v.low) / (v.high - v.low)
	return uint8(math.Round(255 * math.Max(0, math.Min(1, t))))
}

func blend(base, top uint8, alpha float64) uint8 {
	return uint8(math.Round(float64(base)*(1-alpha) + float64(top)*alpha))
}

func intensityRange(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, x := range data[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func parseAxis(axis string) (models.Axis, error) {
	switch axis {
	case "x", "X":
		return models.AxisCol, nil
	case "y", "Y":
		return models.AxisRow, nil
	case "z", "Z":
		return models.AxisSlice, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}
