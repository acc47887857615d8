package measure

import (
	"ctmorphometry/internal/models"
)

// PhysicalCoordinates returns the (x, y, z) position in mm of every masked
// voxel, in row-major scan order. The axis mapping is x = column,
// y = row, z = slice.
func PhysicalCoordinates(mask *models.Mask, spacing models.Spacing) []models.Point3D {
	pts := make([]models.Point3D, 0, mask.Count())
	forEachVoxel(mask, func(s, r, c int) {
		pts = append(pts, spacing.Physical(s, r, c))
	})
	return pts
}

func forEachVoxel(mask *models.Mask, fn func(s, r, c int)) {
	i := 0
	for s := 0; s < mask.Slices; s++ {
		for r := 0; r < mask.Rows; r++ {
			for c := 0; c < mask.Cols; c++ {
				if mask.Data[i] {
					fn(s, r, c)
				}
				i++
			}
		}
	}
}
