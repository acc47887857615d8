package analysis

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/measure"
)

var unitSpacing = models.Spacing{PixelSpacing: [2]float64{1, 1}, SliceThickness: 1}

// cubeModel returns an all-true n³ mask over a uniform raw intensity.
func cubeModel(t *testing.T, n int, raw float64) *models.VolumeMaskModel {
	t.Helper()
	shape := models.Shape{Slices: n, Rows: n, Cols: n}
	vol := models.NewVolume(shape)
	mask := models.NewMask(shape)
	for i := range vol.Data {
		vol.Data[i] = raw
		mask.Data[i] = true
	}
	m, err := models.NewVolumeMaskModel(vol, mask, unitSpacing)
	require.NoError(t, err)
	return m
}

type panickingEstimator struct{}

func (panickingEstimator) Name() string { return "broken" }
func (panickingEstimator) Axes(*models.Mask, models.Spacing) (measure.AxisLengths, error) {
	panic("index out of range")
}

func TestProcessCube(t *testing.T) {
	a, err := NewAnalyzer(&Params{Workers: 4, CalibrationOffset: measure.DefaultCalibrationOffset})
	require.NoError(t, err)

	rep, err := a.Process(cubeModel(t, 10, 1040))
	require.NoError(t, err)

	assert.Equal(t, 1000, rep.MaskVoxels)
	assert.Equal(t, measure.Extents{X: 10, Y: 10, Z: 10}, rep.Extents)
	assert.InDelta(t, 1.0, rep.VolumeCM3, 1e-12)

	require.NotNil(t, rep.Density)
	assert.InDelta(t, 40, rep.Density.Mean, 1e-9)
	assert.InDelta(t, 40, rep.Density.Median, 1e-9)
	assert.InDelta(t, 0, rep.Density.Std, 1e-9)

	assert.InDelta(t, math.Sqrt(75), rep.SphereRadius, 1e-9)

	pca, ok := rep.Axis(measure.EstimatorPCA)
	require.True(t, ok)
	assert.False(t, pca.Failed())
	assert.InDelta(t, pca.Lengths.Major, pca.Lengths.Minor, 1e-9)
	assert.InDelta(t, 4*math.Sqrt(99.0/12), pca.Lengths.Major, 1e-9)

	// The support voxels of a cube are coplanar, so both ellipsoid fits fail
	// without affecting the rest of the report.
	for _, name := range []string{measure.EstimatorThreePointFit, measure.EstimatorExtremeHeuristic} {
		res, ok := rep.Axis(name)
		require.True(t, ok, name)
		assert.True(t, res.Failed(), name)
	}
	assert.Len(t, rep.Errors, 2)
}

func TestProcessEmptyMask(t *testing.T) {
	shape := models.Shape{Slices: 4, Rows: 4, Cols: 4}
	m, err := models.NewVolumeMaskModel(models.NewVolume(shape), models.NewMask(shape), unitSpacing)
	require.NoError(t, err)

	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	rep, err := a.Process(m)
	require.NoError(t, err)

	assert.Equal(t, measure.Extents{}, rep.Extents)
	assert.Equal(t, 0.0, rep.VolumeCM3)
	assert.Nil(t, rep.Density)
	for _, res := range rep.Axes {
		assert.True(t, res.Failed(), res.Estimator)
	}
	// density, three estimators and the sphere radius
	assert.Len(t, rep.Errors, 5)
}

func TestProcessIsolatesPanics(t *testing.T) {
	a, err := NewAnalyzer(&Params{AxisEstimators: []string{"pca"}})
	require.NoError(t, err)
	a.estimators = append([]measure.AxisEstimator{panickingEstimator{}}, a.estimators...)

	rep, err := a.Process(cubeModel(t, 6, 1100))
	require.NoError(t, err)

	broken, ok := rep.Axis("broken")
	require.True(t, ok)
	assert.True(t, broken.Failed())
	assert.Contains(t, broken.Error, "panic")

	pca, ok := rep.Axis(measure.EstimatorPCA)
	require.True(t, ok)
	assert.False(t, pca.Failed())
	assert.Positive(t, rep.SphereRadius)
}

func TestProcessRejectsIncompleteModel(t *testing.T) {
	a, err := NewAnalyzer(nil)
	require.NoError(t, err)

	_, err = a.Process(nil)
	assert.Error(t, err)

	_, err = a.Process(&models.VolumeMaskModel{
		Intensity: models.NewVolume(models.Shape{Slices: 10, Rows: 10, Cols: 10}),
		Mask:      models.NewMask(models.Shape{Slices: 10, Rows: 10, Cols: 5}),
		Spacing:   unitSpacing,
	})
	assert.True(t, errors.Is(err, models.ErrShapeMismatch))
}

func TestNewAnalyzerDefaultsCalibrationOffset(t *testing.T) {
	params := &Params{Workers: 2}
	a, err := NewAnalyzer(params)
	require.NoError(t, err)
	assert.Zero(t, params.CalibrationOffset)

	rep, err := a.Process(cubeModel(t, 4, 1040))
	require.NoError(t, err)
	require.NotNil(t, rep.Density)
	assert.InDelta(t, 40, rep.Density.Mean, 1e-9)
}

func TestNewAnalyzerUnknownEstimator(t *testing.T) {
	_, err := NewAnalyzer(&Params{AxisEstimators: []string{"pca", "mvee"}})
	assert.Error(t, err)
}

func TestReportWriteText(t *testing.T) {
	a, err := NewAnalyzer(&Params{AxisEstimators: []string{"pca", "three-point"}, CalibrationOffset: 1000})
	require.NoError(t, err)
	rep, err := a.Process(cubeModel(t, 10, 1040))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "mean density value = 40\n")
	assert.Contains(t, out, "x-max = 10 mm\n")
	assert.Contains(t, out, "Volume = 1 cm^3\n")
	assert.Contains(t, out, "major pca = ")
	assert.Contains(t, out, "axes three-point = n/a")
	assert.Contains(t, out, "Sphere radius = ")
}

func TestReportWriteYAML(t *testing.T) {
	a, err := NewAnalyzer(&Params{AxisEstimators: []string{"pca"}, CalibrationOffset: 1000})
	require.NoError(t, err)
	rep, err := a.Process(cubeModel(t, 10, 1040))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteYAML(&buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1000, decoded["maskVoxels"])
	assert.Contains(t, decoded, "extents")
	assert.NotContains(t, decoded, "errors")
}

func TestLoadMaskFormats(t *testing.T) {
	_, err := LoadMask("", "")
	assert.Error(t, err)

	_, err = LoadMask("lesion.mha", "")
	assert.ErrorContains(t, err, "unsupported mask format")

	assert.Equal(t, ".nii.gz", maskFormat("/data/Lesion.NII.GZ"))
	assert.Equal(t, ".npz", maskFormat("/data/mask.npz"))
}

func TestResolveSpacing(t *testing.T) {
	explicit := models.Spacing{PixelSpacing: [2]float64{0.7, 0.7}, SliceThickness: 2}
	got, err := resolveSpacing(Source{Spacing: explicit, DicomDir: "/does/not/exist"})
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	_, err = resolveSpacing(Source{MaskFile: "mask.npz"})
	assert.ErrorIs(t, err, models.ErrInvalidSpacing)

	_, err = resolveSpacing(Source{DicomDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestResolveSpacingRejectsPartialOverride(t *testing.T) {
	for _, sp := range []models.Spacing{
		{PixelSpacing: [2]float64{0.7, 0.7}},
		{SliceThickness: 2.5},
	} {
		_, err := resolveSpacing(Source{Spacing: sp, DicomDir: "/does/not/exist"})
		assert.ErrorIs(t, err, models.ErrInvalidSpacing, "%+v", sp)
		assert.ErrorContains(t, err, "explicit spacing is incomplete")
	}
}

func TestLoadModelNeedsVolume(t *testing.T) {
	_, err := LoadModel(Source{MaskFile: "mask.npz"})
	assert.ErrorContains(t, err, "no intensity volume")
}
