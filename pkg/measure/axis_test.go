package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctmorphometry/internal/models"
)

func TestPCABox(t *testing.T) {
	mask := boxMask(models.Shape{Slices: 4, Rows: 6, Cols: 12}, 1, 3, 1, 5, 1, 11)

	got, err := PCA{}.Axes(mask, unitSpacing)
	require.NoError(t, err)

	// Population variance of n evenly spaced unit positions is (n²-1)/12.
	assert.InDelta(t, 4*math.Sqrt(99.0/12), got.Major, 1e-9)
	assert.InDelta(t, 4*math.Sqrt(15.0/12), got.Minor, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(3.0/12), got.Semi[2], 1e-9)
}

func TestPCASphere(t *testing.T) {
	const radius = 8
	got, err := PCA{}.Axes(sphereMask(radius), unitSpacing)
	require.NoError(t, err)

	assert.InDelta(t, got.Major, got.Minor, 1e-6)
	assert.InDelta(t, 2.0*radius, got.Major, 0.15*2*radius)
}

func TestPCAUsesSliceThickness(t *testing.T) {
	mask := boxMask(models.Shape{Slices: 10, Rows: 3, Cols: 3}, 0, 10, 0, 2, 0, 2)
	thin := models.Spacing{PixelSpacing: [2]float64{1, 1}, SliceThickness: 1}
	thick := models.Spacing{PixelSpacing: [2]float64{1, 1}, SliceThickness: 2}

	a, err := PCA{}.Axes(mask, thin)
	require.NoError(t, err)
	b, err := PCA{}.Axes(mask, thick)
	require.NoError(t, err)

	assert.InDelta(t, 2*a.Major, b.Major, 1e-9)
	assert.InDelta(t, a.Minor, b.Minor, 1e-9)
}

func TestPCASingleVoxel(t *testing.T) {
	mask := models.NewMask(models.Shape{Slices: 3, Rows: 3, Cols: 3})
	mask.Set(1, 1, 1, true)

	got, err := PCA{}.Axes(mask, unitSpacing)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Major)
	assert.Equal(t, 0.0, got.Minor)
}

func TestAxesFromEigenvalues(t *testing.T) {
	got, err := axesFromEigenvalues([]float64{4, -1e-12, 1})
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.Major)
	assert.Equal(t, 4.0, got.Minor)
	assert.Equal(t, 0.0, got.Semi[2])

	got, err = axesFromEigenvalues([]float64{4, -1e-3, -2})
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
	assert.True(t, math.IsNaN(got.Major))
	assert.True(t, math.IsNaN(got.Minor))
}

func TestThreePointFit(t *testing.T) {
	got, err := ThreePointFit{}.Axes(fitMask(), unitSpacing)
	require.NoError(t, err)

	// Support points relative to the box centre:
	//   (-1.5,-0.5,-2.5), (1.5,1.5,1.5), (-2.5,-2.5,-0.5)
	// giving coefficients (-4/9, 16/27, 8/27).
	assert.InDelta(t, 1.5, got.Semi[0], 1e-9)
	assert.InDelta(t, math.Sqrt(27.0/16), got.Semi[1], 1e-9)
	assert.InDelta(t, math.Sqrt(27.0/8), got.Semi[2], 1e-9)
	assert.InDelta(t, 2*math.Sqrt(27.0/8), got.Major, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(27.0/16), got.Minor, 1e-9)
}

func TestExtremeHeuristicMatchesOnSingleVoxelRows(t *testing.T) {
	fit, err := ThreePointFit{}.Axes(fitMask(), unitSpacing)
	require.NoError(t, err)
	ext, err := ExtremeHeuristic{}.Axes(fitMask(), unitSpacing)
	require.NoError(t, err)

	assert.InDelta(t, fit.Major, ext.Major, 1e-9)
	assert.InDelta(t, fit.Minor, ext.Minor, 1e-9)
	for i := range fit.Semi {
		assert.InDelta(t, fit.Semi[i], ext.Semi[i], 1e-9)
	}
}

func TestExtremeHeuristicMedianColumn(t *testing.T) {
	mask := fitMask()
	// Widen the lowest row plane: the median column becomes 2 while the
	// first-found column stays 0.
	mask.Set(2, 0, 2, true)
	mask.Set(2, 0, 3, true)

	ext, err := ExtremeHeuristic{}.Axes(mask, unitSpacing)
	require.NoError(t, err)

	// Support points (-1.5,-0.5,-2.5), (1.5,1.5,1.5), (-0.5,-2.5,-0.5)
	// give coefficients (2/9, 4/27, 2/27).
	assert.InDelta(t, math.Sqrt(9.0/2), ext.Semi[0], 1e-9)
	assert.InDelta(t, math.Sqrt(27.0/4), ext.Semi[1], 1e-9)
	assert.InDelta(t, math.Sqrt(27.0/2), ext.Semi[2], 1e-9)
	assert.InDelta(t, 2*math.Sqrt(27.0/2), ext.Major, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(9.0/2), ext.Minor, 1e-9)

	fit, err := ThreePointFit{}.Axes(mask, unitSpacing)
	require.NoError(t, err)
	assert.NotEqual(t, fit.Major, ext.Major)
}

func TestEllipsoidSingular(t *testing.T) {
	// For a box the top-down and front-back support voxels coincide.
	mask := boxMask(models.Shape{Slices: 6, Rows: 6, Cols: 6}, 1, 5, 1, 5, 1, 5)

	_, err := ThreePointFit{}.Axes(mask, unitSpacing)
	assert.ErrorIs(t, err, ErrSingularSystem)

	var estErr *EstimatorError
	require.ErrorAs(t, err, &estErr)
	assert.Equal(t, EstimatorThreePointFit, estErr.Estimator)
}

func TestAxisEstimatorsEmptyMask(t *testing.T) {
	mask := models.NewMask(models.Shape{Slices: 5, Rows: 5, Cols: 5})
	for _, name := range AxisEstimatorNames() {
		t.Run(name, func(t *testing.T) {
			est, err := AxisEstimatorByName(name)
			require.NoError(t, err)
			_, err = est.Axes(mask, unitSpacing)
			assert.ErrorIs(t, err, ErrEmptyMask)
		})
	}
}

func TestAxisEstimatorByName(t *testing.T) {
	assert.Equal(t, []string{EstimatorExtremeHeuristic, EstimatorPCA, EstimatorThreePointFit}, AxisEstimatorNames())

	est, err := AxisEstimatorByName(" PCA ")
	require.NoError(t, err)
	assert.Equal(t, EstimatorPCA, est.Name())

	_, err = AxisEstimatorByName("mvee")
	assert.Error(t, err)
}
