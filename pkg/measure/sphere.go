package measure

import (
	"math"

	"ctmorphometry/internal/models"
)

// SphereRadius returns the radius in mm of the smallest sphere centred on the
// bounding box centre that contains every masked voxel position. The box is
// anchored at the first occupied plane of each axis and sized by extents,
// normally the output of MaxExtents for the same mask. The result is not the
// true minimal enclosing sphere, whose centre may differ.
func SphereRadius(mask *models.Mask, spacing models.Spacing, extents Extents) (float64, error) {
	p := Scanner{}.Profile(mask)
	b, ok := newBox(p, spacing, extents)
	if !ok {
		return 0, estimatorError("sphere", ErrEmptyMask, "no voxels to enclose")
	}

	maxSq := 0.0
	forEachVoxel(mask, func(s, r, c int) {
		q := b.relative(spacing.Physical(s, r, c))
		if d := q.X*q.X + q.Y*q.Y + q.Z*q.Z; d > maxSq {
			maxSq = d
		}
	})
	return math.Sqrt(maxSq), nil
}
