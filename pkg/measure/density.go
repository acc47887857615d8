package measure

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"ctmorphometry/internal/models"
)

// DefaultCalibrationOffset converts stored scanner values to Hounsfield units.
const DefaultCalibrationOffset = 1000.0

// DensityStats are point estimates of calibrated density over the masked
// region.
type DensityStats struct {
	Mean   float64 `yaml:"mean"`
	Median float64 `yaml:"median"`
	Std    float64 `yaml:"std"`
	Count  int     `yaml:"count"`
}

// Calibrate returns a new volume with offset subtracted from every sample.
// The input is left untouched, so calibration can never be applied twice to
// the same buffer.
func Calibrate(v *models.Volume, offset float64) *models.Volume {
	out := &models.Volume{Data: make([]float64, len(v.Data)), Shape: v.Shape}
	for i, x := range v.Data {
		out.Data[i] = x - offset
	}
	return out
}

// DensityAnalyzer computes density statistics over a mask.
type DensityAnalyzer struct {
	// Offset is subtracted from the raw intensities before masking.
	Offset float64
}

// Density runs a DensityAnalyzer with DefaultCalibrationOffset.
func Density(intensity *models.Volume, mask *models.Mask) (DensityStats, error) {
	return DensityAnalyzer{Offset: DefaultCalibrationOffset}.Stats(intensity, mask)
}

// Stats calibrates the raw intensity volume, zeroes every voxel outside the
// mask and summarises the values that are strictly positive. Masked voxels
// whose calibrated density is zero or negative are therefore excluded too.
// The standard deviation is the population (biased) estimate.
func (d DensityAnalyzer) Stats(intensity *models.Volume, mask *models.Mask) (DensityStats, error) {
	if intensity.Shape != mask.Shape {
		return DensityStats{}, estimatorError("density", models.ErrShapeMismatch, "volume %s, mask %s", intensity.Shape, mask.Shape)
	}

	calibrated := Calibrate(intensity, d.Offset)
	values := make([]float64, 0, 1024)
	for i, x := range calibrated.Data {
		if !mask.Data[i] {
			continue
		}
		if x > 0 {
			values = append(values, x)
		}
	}
	if len(values) == 0 {
		return DensityStats{}, estimatorError("density", ErrNoPositiveVoxels, "offset %g", d.Offset)
	}

	median, err := stats.Median(values)
	if err != nil {
		return DensityStats{}, fmt.Errorf("density: median: %w", err)
	}
	std, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return DensityStats{}, fmt.Errorf("density: std: %w", err)
	}

	return DensityStats{
		Mean:   stat.Mean(values, nil),
		Median: median,
		Std:    std,
		Count:  len(values),
	}, nil
}
