package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ctmorphometry/internal/models"
)

func TestVolumeSpacing(t *testing.T) {
	spacing := models.Spacing{PixelSpacing: [2]float64{0.5, 3}, SliceThickness: 2}
	mask := boxMask(models.Shape{Slices: 4, Rows: 10, Cols: 10}, 0, 4, 0, 10, 0, 10)

	// 400 voxels of 0.25 mm² × 2 mm = 200 mm³.
	assert.InDelta(t, 0.2, Volume(mask, spacing), 1e-12)
}

func TestVolumeLinearInVoxelCount(t *testing.T) {
	shape := models.Shape{Slices: 5, Rows: 8, Cols: 8}
	single := boxMask(shape, 0, 5, 0, 2, 0, 4)
	double := boxMask(shape, 0, 5, 0, 4, 0, 4)

	assert.InDelta(t, 2*Volume(single, unitSpacing), Volume(double, unitSpacing), 1e-12)
}

func TestVolumeCountsVoxels(t *testing.T) {
	mask := sphereMask(10)
	got := Volume(mask, unitSpacing) * 1000
	assert.InDelta(t, float64(mask.Count()), got, 1e-9)
}
