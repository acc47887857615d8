package models

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when the intensity volume and the mask do
	// not share the same (slice, row, column) shape.
	ErrShapeMismatch = errors.New("models: intensity volume and mask shapes differ")

	// ErrInvalidSpacing is returned for non-positive pixel spacing or slice
	// thickness.
	ErrInvalidSpacing = errors.New("models: spacing must be positive")

	// ErrInvalidShape is returned when a buffer length does not match the
	// declared dimensions.
	ErrInvalidShape = errors.New("models: data length does not match shape")
)

// Axis identifies one of the three array axes of a volume.
type Axis int

const (
	// AxisSlice is axis 0, the acquisition (z) axis.
	AxisSlice Axis = iota
	// AxisRow is axis 1, the front-back (y) axis.
	AxisRow
	// AxisCol is axis 2, the left-right (x) axis.
	AxisCol
)

func (a Axis) String() string {
	switch a {
	case AxisSlice:
		return "slice"
	case AxisRow:
		return "row"
	case AxisCol:
		return "col"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Shape holds the dimensions of a volume in voxels, ordered (slice, row, column).
type Shape struct {
	Slices int `yaml:"slices"`
	Rows   int `yaml:"rows"`
	Cols   int `yaml:"cols"`
}

// Len returns the number of voxels.
func (s Shape) Len() int { return s.Slices * s.Rows * s.Cols }

// Dim returns the size of the volume along axis a.
func (s Shape) Dim(a Axis) int {
	switch a {
	case AxisSlice:
		return s.Slices
	case AxisRow:
		return s.Rows
	default:
		return s.Cols
	}
}

// Index returns the offset of voxel (slice, row, col) in a row-major buffer.
func (s Shape) Index(slice, row, col int) int {
	return slice*s.Rows*s.Cols + row*s.Cols + col
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.Slices, s.Rows, s.Cols)
}

// Volume is a scanner intensity volume stored as a 1D array in row-major
// order, axes (slice, row, column).
type Volume struct {
	Data []float64
	Shape
}

// NewVolume allocates a zeroed volume of the given shape.
func NewVolume(shape Shape) *Volume {
	return &Volume{Data: make([]float64, shape.Len()), Shape: shape}
}

// VolumeFromData wraps an existing buffer, checking its length.
func VolumeFromData(data []float64, shape Shape) (*Volume, error) {
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrInvalidShape, len(data), shape)
	}
	return &Volume{Data: data, Shape: shape}, nil
}

// At returns the sample at (slice, row, col).
func (v *Volume) At(slice, row, col int) float64 {
	return v.Data[v.Index(slice, row, col)]
}

// Set stores a sample at (slice, row, col).
func (v *Volume) Set(slice, row, col int, value float64) {
	v.Data[v.Index(slice, row, col)] = value
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Shape: v.Shape}
}

// Mask is a binary segmentation co-registered with a Volume. True marks a
// voxel belonging to the segmented formation.
type Mask struct {
	Data []bool
	Shape
}

// NewMask allocates an all-false mask of the given shape.
func NewMask(shape Shape) *Mask {
	return &Mask{Data: make([]bool, shape.Len()), Shape: shape}
}

// MaskFromData wraps an existing buffer, checking its length.
func MaskFromData(data []bool, shape Shape) (*Mask, error) {
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrInvalidShape, len(data), shape)
	}
	return &Mask{Data: data, Shape: shape}, nil
}

// At reports whether voxel (slice, row, col) is inside the mask.
func (m *Mask) At(slice, row, col int) bool {
	return m.Data[m.Index(slice, row, col)]
}

// Set marks voxel (slice, row, col).
func (m *Mask) Set(slice, row, col int, value bool) {
	m.Data[m.Index(slice, row, col)] = value
}

// Count returns the number of true voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether no voxel is set.
func (m *Mask) Empty() bool {
	for _, v := range m.Data {
		if v {
			return false
		}
	}
	return true
}

// Spacing is the physical voxel size in millimetres.
type Spacing struct {
	// PixelSpacing is the (row, column) in-plane spacing. Only the first
	// component is used; in-plane spacing is treated as isotropic.
	PixelSpacing [2]float64 `yaml:"pixelSpacing"`

	// SliceThickness is the distance between slice centres.
	SliceThickness float64 `yaml:"sliceThickness"`
}

// InPlane returns the in-plane spacing used for both row and column axes.
func (s Spacing) InPlane() float64 { return s.PixelSpacing[0] }

// Along returns the physical spacing for axis a.
func (s Spacing) Along(a Axis) float64 {
	if a == AxisSlice {
		return s.SliceThickness
	}
	return s.InPlane()
}

// Validate checks that every component used by the measurements is positive.
func (s Spacing) Validate() error {
	if !(s.PixelSpacing[0] > 0) || !(s.SliceThickness > 0) {
		return fmt.Errorf("%w: pixel spacing %v, slice thickness %v", ErrInvalidSpacing, s.PixelSpacing, s.SliceThickness)
	}
	return nil
}

// Point3D is a position in physical units (mm), x left-right, y front-back,
// z along the slice axis.
type Point3D struct {
	X, Y, Z float64
}

// Physical maps voxel indices to millimetres: x = col, y = row, z = slice.
func (s Spacing) Physical(slice, row, col int) Point3D {
	return Point3D{
		X: float64(col) * s.InPlane(),
		Y: float64(row) * s.InPlane(),
		Z: float64(slice) * s.SliceThickness,
	}
}

// VolumeMaskModel bundles an intensity volume, its segmentation mask and the
// acquisition spacing. The fields are read-only once constructed.
type VolumeMaskModel struct {
	Intensity *Volume
	Mask      *Mask
	Spacing   Spacing
}

// NewVolumeMaskModel validates and assembles a model. Shapes must match
// exactly; a mismatch is rejected before any measurement can run.
func NewVolumeMaskModel(intensity *Volume, mask *Mask, spacing Spacing) (*VolumeMaskModel, error) {
	if intensity == nil || mask == nil {
		return nil, fmt.Errorf("models: intensity volume and mask are required")
	}
	if intensity.Shape != mask.Shape {
		return nil, fmt.Errorf("%w: volume %s, mask %s", ErrShapeMismatch, intensity.Shape, mask.Shape)
	}
	if len(intensity.Data) != intensity.Len() || len(mask.Data) != mask.Len() {
		return nil, ErrInvalidShape
	}
	if err := spacing.Validate(); err != nil {
		return nil, err
	}
	return &VolumeMaskModel{Intensity: intensity, Mask: mask, Spacing: spacing}, nil
}
