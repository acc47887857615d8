package measure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"ctmorphometry/internal/models"
)

// eigenTolerance absorbs round-off in eigenvalues that should be zero.
const eigenTolerance = 1e-10

// PCA estimates axes from the eigenvalues of the covariance of the masked
// voxel positions. Each axis length is 4·√λ, i.e. twice the semi-axis of the
// ellipsoid with the same second moments along that principal direction.
type PCA struct{}

// Name implements AxisEstimator.
func (PCA) Name() string { return EstimatorPCA }

// Axes implements AxisEstimator.
func (PCA) Axes(mask *models.Mask, spacing models.Spacing) (AxisLengths, error) {
	pts := PhysicalCoordinates(mask, spacing)
	n := len(pts)
	if n == 0 {
		return AxisLengths{}, estimatorError(EstimatorPCA, ErrEmptyMask, "no voxels to decompose")
	}

	var mean models.Point3D
	for _, p := range pts {
		mean.X += p.X
		mean.Y += p.Y
		mean.Z += p.Z
	}
	mean.X /= float64(n)
	mean.Y /= float64(n)
	mean.Z /= float64(n)

	// Centred coordinates scaled by 1/√N so that XᵀX is the population
	// covariance.
	norm := math.Sqrt(float64(n))
	x := mat.NewDense(n, 3, nil)
	for i, p := range pts {
		x.Set(i, 0, (p.X-mean.X)/norm)
		x.Set(i, 1, (p.Y-mean.Y)/norm)
		x.Set(i, 2, (p.Z-mean.Z)/norm)
	}

	var cov mat.SymDense
	cov.SymOuterK(1, x.T())

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, false); !ok {
		return nanAxes(), estimatorError(EstimatorPCA, ErrDegenerateGeometry, "eigen decomposition did not converge")
	}
	return axesFromEigenvalues(eig.Values(nil))
}

// axesFromEigenvalues clamps round-off negatives to zero, sorts ascending and
// converts the two largest eigenvalues into major and minor lengths.
func axesFromEigenvalues(values []float64) (AxisLengths, error) {
	vals := make([]float64, len(values))
	copy(vals, values)
	for i, v := range vals {
		if v < 0 && v > -eigenTolerance {
			vals[i] = 0
		}
	}
	sort.Float64s(vals)

	n := len(vals)
	if vals[n-1] < 0 {
		return nanAxes(), estimatorError(EstimatorPCA, ErrDegenerateGeometry, "largest eigenvalue %g", vals[n-1])
	}
	if vals[n-2] < 0 {
		return nanAxes(), estimatorError(EstimatorPCA, ErrDegenerateGeometry, "second eigenvalue %g", vals[n-2])
	}

	var out AxisLengths
	out.Major = 4 * math.Sqrt(vals[n-1])
	out.Minor = 4 * math.Sqrt(vals[n-2])
	for i := 0; i < 3 && i < n; i++ {
		v := vals[n-1-i]
		if v < 0 {
			out.Semi[i] = math.NaN()
			continue
		}
		out.Semi[i] = 2 * math.Sqrt(v)
	}
	return out, nil
}

func nanAxes() AxisLengths {
	nan := math.NaN()
	return AxisLengths{Major: nan, Minor: nan, Semi: [3]float64{nan, nan, nan}}
}
