package measure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"ctmorphometry/internal/models"
)

// ThreePointFit fits an axis-aligned ellipsoid x²/A² + y²/B² + z²/C² = 1,
// centred on the bounding box, through three extremal voxels:
//
//   - the first masked voxel of the lowest occupied slice (row-major),
//   - the first masked voxel of the highest occupied slice (row-major),
//   - the first masked voxel of the lowest occupied row plane, scanning
//     slices and then columns.
//
// The points are not guaranteed to lie on the true boundary, so the result
// is approximate. Symmetric shapes often yield a singular system.
type ThreePointFit struct{}

// Name implements AxisEstimator.
func (ThreePointFit) Name() string { return EstimatorThreePointFit }

// Axes implements AxisEstimator.
func (ThreePointFit) Axes(mask *models.Mask, spacing models.Spacing) (AxisLengths, error) {
	p := Scanner{}.Profile(mask)
	b, ok := newBox(p, spacing, p.Extents(spacing))
	if !ok {
		return AxisLengths{}, estimatorError(EstimatorThreePointFit, ErrEmptyMask, "no support points")
	}

	top, _ := p.First(models.AxisSlice)
	bottom, _ := p.Last(models.AxisSlice)
	front, _ := p.First(models.AxisRow)

	var idx [3][3]int
	idx[0] = firstInSlice(mask, top)
	idx[1] = firstInSlice(mask, bottom)
	idx[2] = firstInRowPlane(mask, front)

	var pts [3]models.Point3D
	for i, v := range idx {
		pts[i] = b.relative(spacing.Physical(v[0], v[1], v[2]))
	}

	var rows [3][3]float64
	for i, q := range pts {
		rows[i] = [3]float64{q.X * q.X, q.Y * q.Y, q.Z * q.Z}
	}
	k, err := solveEllipsoid(rows)
	if err != nil {
		return AxisLengths{}, estimatorError(EstimatorThreePointFit, err, "support voxels %v", idx)
	}
	return axesFromCoefficients(k), nil
}

// ExtremeHeuristic uses the same ellipsoid equation as ThreePointFit with a
// different choice of support points: the median masked column of the
// first occupied row of the lowest slice, of the last occupied row of the
// highest slice, and of the first occupied slice within the lowest row
// plane. The system is assembled in array index order (slice, row, column)
// and the coefficients are mapped back to (x, y, z) afterwards.
type ExtremeHeuristic struct{}

// Name implements AxisEstimator.
func (ExtremeHeuristic) Name() string { return EstimatorExtremeHeuristic }

// Axes implements AxisEstimator.
func (ExtremeHeuristic) Axes(mask *models.Mask, spacing models.Spacing) (AxisLengths, error) {
	p := Scanner{}.Profile(mask)
	b, ok := newBox(p, spacing, p.Extents(spacing))
	if !ok {
		return AxisLengths{}, estimatorError(EstimatorExtremeHeuristic, ErrEmptyMask, "no support points")
	}

	top, _ := p.First(models.AxisSlice)
	bottom, _ := p.Last(models.AxisSlice)
	front, _ := p.First(models.AxisRow)

	var idx [3][3]int

	r := firstRowInSlice(mask, top)
	idx[0] = [3]int{top, r, medianCol(mask, top, r)}

	r = lastRowInSlice(mask, bottom)
	idx[1] = [3]int{bottom, r, medianCol(mask, bottom, r)}

	s := firstSliceInRowPlane(mask, front)
	idx[2] = [3]int{s, front, medianCol(mask, s, front)}

	// Rows are (z², y², x²), matching the (slice, row, col) index order.
	var rows [3][3]float64
	for i, v := range idx {
		q := b.relative(spacing.Physical(v[0], v[1], v[2]))
		rows[i] = [3]float64{q.Z * q.Z, q.Y * q.Y, q.X * q.X}
	}
	k, err := solveEllipsoid(rows)
	if err != nil {
		return AxisLengths{}, estimatorError(EstimatorExtremeHeuristic, err, "support voxels %v", idx)
	}
	return axesFromCoefficients([3]float64{k[2], k[1], k[0]}), nil
}

// solveEllipsoid solves rows·k = 1 for the implicit ellipsoid coefficients.
func solveEllipsoid(rows [3][3]float64) ([3]float64, error) {
	a := mat.NewDense(3, 3, []float64{
		rows[0][0], rows[0][1], rows[0][2],
		rows[1][0], rows[1][1], rows[1][2],
		rows[2][0], rows[2][1], rows[2][2],
	})
	ones := mat.NewVecDense(3, []float64{1, 1, 1})

	var x mat.VecDense
	if err := x.SolveVec(a, ones); err != nil {
		return [3]float64{}, ErrSingularSystem
	}

	var k [3]float64
	for i := range k {
		k[i] = x.AtVec(i)
		if k[i] == 0 || math.IsNaN(k[i]) || math.IsInf(k[i], 0) {
			return [3]float64{}, ErrSingularSystem
		}
	}
	return k, nil
}

// axesFromCoefficients converts (x, y, z) coefficients into semi-axes
// √|1/k| and full major/minor lengths.
func axesFromCoefficients(k [3]float64) AxisLengths {
	var out AxisLengths
	for i, v := range k {
		out.Semi[i] = math.Sqrt(math.Abs(1 / v))
	}
	sorted := out.Semi
	sort.Float64s(sorted[:])
	out.Major = 2 * sorted[2]
	out.Minor = 2 * sorted[0]
	return out
}

func firstInSlice(mask *models.Mask, s int) [3]int {
	for r := 0; r < mask.Rows; r++ {
		for c := 0; c < mask.Cols; c++ {
			if mask.At(s, r, c) {
				return [3]int{s, r, c}
			}
		}
	}
	return [3]int{s, 0, 0}
}

func firstInRowPlane(mask *models.Mask, r int) [3]int {
	for s := 0; s < mask.Slices; s++ {
		for c := 0; c < mask.Cols; c++ {
			if mask.At(s, r, c) {
				return [3]int{s, r, c}
			}
		}
	}
	return [3]int{0, r, 0}
}

func rowOccupied(mask *models.Mask, s, r int) bool {
	off := mask.Index(s, r, 0)
	for c := 0; c < mask.Cols; c++ {
		if mask.Data[off+c] {
			return true
		}
	}
	return false
}

func firstRowInSlice(mask *models.Mask, s int) int {
	for r := 0; r < mask.Rows; r++ {
		if rowOccupied(mask, s, r) {
			return r
		}
	}
	return 0
}

func lastRowInSlice(mask *models.Mask, s int) int {
	for r := mask.Rows - 1; r >= 0; r-- {
		if rowOccupied(mask, s, r) {
			return r
		}
	}
	return 0
}

func firstSliceInRowPlane(mask *models.Mask, r int) int {
	for s := 0; s < mask.Slices; s++ {
		if rowOccupied(mask, s, r) {
			return s
		}
	}
	return 0
}

// medianCol returns the lower median of the masked column indices in
// row r of slice s.
func medianCol(mask *models.Mask, s, r int) int {
	var cols []int
	off := mask.Index(s, r, 0)
	for c := 0; c < mask.Cols; c++ {
		if mask.Data[off+c] {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return 0
	}
	return cols[(len(cols)-1)/2]
}
