package measure

import (
	"ctmorphometry/internal/models"
)

// Extents holds the axis-aligned bounding extents of a masked region in mm.
type Extents struct {
	X float64 `yaml:"x"` // left-right, column axis
	Y float64 `yaml:"y"` // front-back, row axis
	Z float64 `yaml:"z"` // slice axis
}

// MaxExtents counts, along each axis, the planes that contain at least one
// masked voxel and scales the count by that axis's spacing. Only the first
// pixel-spacing component is used in-plane. An empty mask yields zero
// extents.
//
// The count is of occupied planes, not the span between the first and last
// one: a mask with a gap along an axis reports a shorter extent.
func MaxExtents(mask *models.Mask, spacing models.Spacing) Extents {
	return Scanner{}.Extents(mask, spacing)
}

// Extents is the Scanner form of MaxExtents.
func (sc Scanner) Extents(mask *models.Mask, spacing models.Spacing) Extents {
	return sc.Profile(mask).Extents(spacing)
}

// Extents scales the occupied-plane counts by the spacing of each axis.
func (p *Profile) Extents(spacing models.Spacing) Extents {
	return Extents{
		X: float64(p.CountOccupied(models.AxisCol)) * spacing.Along(models.AxisCol),
		Y: float64(p.CountOccupied(models.AxisRow)) * spacing.Along(models.AxisRow),
		Z: float64(p.CountOccupied(models.AxisSlice)) * spacing.Along(models.AxisSlice),
	}
}

// box is the bounding box frame shared by the sphere and ellipsoid
// estimators: the physical position of the first occupied plane on each axis
// and the box centre relative to it.
type box struct {
	origin  models.Point3D
	extents Extents
}

// center returns the bounding box centre in absolute physical coordinates.
func (b box) center() models.Point3D {
	return models.Point3D{
		X: b.origin.X + b.extents.X/2,
		Y: b.origin.Y + b.extents.Y/2,
		Z: b.origin.Z + b.extents.Z/2,
	}
}

// relative expresses p in the frame centred on the bounding box.
func (b box) relative(p models.Point3D) models.Point3D {
	c := b.center()
	return models.Point3D{X: p.X - c.X, Y: p.Y - c.Y, Z: p.Z - c.Z}
}

func newBox(p *Profile, spacing models.Spacing, extents Extents) (box, bool) {
	s, ok := p.First(models.AxisSlice)
	if !ok {
		return box{}, false
	}
	r, _ := p.First(models.AxisRow)
	c, _ := p.First(models.AxisCol)
	return box{origin: spacing.Physical(s, r, c), extents: extents}, true
}
