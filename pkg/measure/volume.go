package measure

import (
	"ctmorphometry/internal/models"
)

const mm3PerCm3 = 1000.0

// Volume returns the enclosed volume of the mask in cm³, computed as a stack
// of voxel-area prisms: the per-slice voxel count times the in-plane voxel
// area, summed, times the slice thickness. Curved boundaries are
// overestimated by the voxel staircase; the approximation is intentional.
func Volume(mask *models.Mask, spacing models.Spacing) float64 {
	return Scanner{}.Volume(mask, spacing)
}

// Volume is the Scanner form of the package-level Volume.
func (sc Scanner) Volume(mask *models.Mask, spacing models.Spacing) float64 {
	return sc.Profile(mask).Volume(spacing)
}

// Volume returns the enclosed volume in cm³ from the per-slice counts.
func (p *Profile) Volume(spacing models.Spacing) float64 {
	area := spacing.InPlane() * spacing.InPlane()
	v := 0.0
	for _, n := range p.SliceCounts {
		if n > 0 {
			v += float64(n) * area
		}
	}
	return v * spacing.SliceThickness / mm3PerCm3
}
