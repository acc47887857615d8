package measure

import (
	"ctmorphometry/internal/models"
)

var unitSpacing = models.Spacing{PixelSpacing: [2]float64{1, 1}, SliceThickness: 1}

// boxMask returns a mask of the given shape with the half-open index box
// [s0,s1)×[r0,r1)×[c0,c1) set.
func boxMask(shape models.Shape, s0, s1, r0, r1, c0, c1 int) *models.Mask {
	m := models.NewMask(shape)
	for s := s0; s < s1; s++ {
		for r := r0; r < r1; r++ {
			for c := c0; c < c1; c++ {
				m.Set(s, r, c, true)
			}
		}
	}
	return m
}

// sphereMask returns a cubic mask of side 2*radius+3 with a digital ball of
// the given radius around the central voxel.
func sphereMask(radius int) *models.Mask {
	n := 2*radius + 3
	center := n / 2
	m := models.NewMask(models.Shape{Slices: n, Rows: n, Cols: n})
	r2 := radius * radius
	for s := 0; s < n; s++ {
		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				ds, dr, dc := s-center, r-center, c-center
				if ds*ds+dr*dr+dc*dc <= r2 {
					m.Set(s, r, c, true)
				}
			}
		}
	}
	return m
}

// fitMask is a sparse 5×5×5 mask whose three-point support voxels are
// (s0,r2,c1), (s4,r4,c4) and (s2,r0,c0). Every plane on every axis is
// occupied, so the box centre sits at index 2.5 on each axis.
func fitMask() *models.Mask {
	m := models.NewMask(models.Shape{Slices: 5, Rows: 5, Cols: 5})
	m.Set(0, 2, 1, true)
	m.Set(4, 4, 4, true)
	m.Set(2, 0, 0, true)
	m.Set(1, 3, 2, true)
	m.Set(3, 1, 3, true)
	return m
}
