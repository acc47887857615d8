// Package analysis runs the full set of lesion measurements over a loaded
// volume and mask and collects them into a Report.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/logging"
	"ctmorphometry/pkg/measure"
)

// Params holds the analysis parameters.
type Params struct {
	// Workers bounds the goroutines used for per-slice scans. Values below 2
	// scan sequentially.
	Workers int

	// CalibrationOffset is subtracted from raw intensities before density
	// statistics are taken. Zero selects measure.DefaultCalibrationOffset.
	CalibrationOffset float64

	// AxisEstimators names the axis estimators to run, in report order.
	// Empty means all registered estimators.
	AxisEstimators []string

	// Logger receives progress and estimator failures. Nil discards them.
	Logger *slog.Logger
}

// Analyzer measures a single VolumeMaskModel.
//
// The measurement sequence is:
//  1. Extents and volume from one scan of the mask
//  2. Density statistics over the calibrated intensities
//  3. Every configured axis estimator, independently
//  4. The bounding-sphere radius
//
// A failure in one estimator is recorded in the report and does not stop the
// others.
type Analyzer struct {
	params     *Params
	scanner    measure.Scanner
	density    measure.DensityAnalyzer
	estimators []measure.AxisEstimator
	log        *slog.Logger
}

// NewAnalyzer resolves the configured estimators and returns an Analyzer.
// Unknown estimator names are rejected here, before any data is touched.
// Unset fields of params take their defaults; params itself is not modified.
func NewAnalyzer(params *Params) (*Analyzer, error) {
	var p Params
	if params != nil {
		p = *params
	}
	params = &p
	if params.CalibrationOffset == 0 {
		params.CalibrationOffset = measure.DefaultCalibrationOffset
	}

	names := params.AxisEstimators
	if len(names) == 0 {
		names = measure.AxisEstimatorNames()
	}
	estimators := make([]measure.AxisEstimator, 0, len(names))
	for _, name := range names {
		est, err := measure.AxisEstimatorByName(name)
		if err != nil {
			return nil, err
		}
		estimators = append(estimators, est)
	}

	log := params.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Analyzer{
		params:     params,
		scanner:    measure.Scanner{Workers: params.Workers},
		density:    measure.DensityAnalyzer{Offset: params.CalibrationOffset},
		estimators: estimators,
		log:        log,
	}, nil
}

// Process runs every measurement over m. The returned error is non-nil only
// when m itself is unusable; per-estimator failures are listed in
// Report.Errors.
func (a *Analyzer) Process(m *models.VolumeMaskModel) (*Report, error) {
	if m == nil || m.Mask == nil || m.Intensity == nil {
		return nil, errors.New("analysis: model is incomplete")
	}
	if m.Intensity.Shape != m.Mask.Shape {
		return nil, fmt.Errorf("analysis: %w", models.ErrShapeMismatch)
	}

	start := time.Now()
	rep := &Report{
		Shape:   m.Mask.Shape,
		Spacing: m.Spacing,
	}

	a.log.Debug("scanning mask", "shape", m.Mask.Shape.String(), "workers", a.params.Workers)
	profile := a.scanner.Profile(m.Mask)
	rep.MaskVoxels = profile.Total()
	rep.Extents = profile.Extents(m.Spacing)
	rep.VolumeCM3 = profile.Volume(m.Spacing)
	if rep.MaskVoxels == 0 {
		a.log.Warn("mask is empty")
	}

	stats, err := a.density.Stats(m.Intensity, m.Mask)
	if err != nil {
		rep.addError("density", err)
		a.log.Warn("density failed", "error", err)
	} else {
		rep.Density = &stats
	}

	for _, est := range a.estimators {
		res := a.runEstimator(est, m)
		if res.Error != "" {
			rep.Errors = append(rep.Errors, res.Error)
		}
		rep.Axes = append(rep.Axes, res)
	}

	radius, err := measure.SphereRadius(m.Mask, m.Spacing, rep.Extents)
	if err != nil {
		rep.addError("sphere", err)
		a.log.Warn("sphere radius failed", "error", err)
	} else {
		rep.SphereRadius = radius
	}

	a.log.Info("analysis complete",
		"voxels", rep.MaskVoxels,
		"volume_cm3", rep.VolumeCM3,
		"errors", len(rep.Errors),
		"elapsed", time.Since(start))
	return rep, nil
}

// runEstimator isolates one axis estimator so that a failure, including a
// panic, is confined to its own result.
func (a *Analyzer) runEstimator(est measure.AxisEstimator, m *models.VolumeMaskModel) (res AxisResult) {
	res.Estimator = est.Name()
	defer func() {
		if r := recover(); r != nil {
			res.Lengths = measure.AxisLengths{}
			res.Error = fmt.Sprintf("%s: panic: %v", est.Name(), r)
			a.log.Error("axis estimator panicked", "estimator", est.Name(), "panic", r)
		}
	}()

	a.log.Debug("running axis estimator", "estimator", est.Name())
	lengths, err := est.Axes(m.Mask, m.Spacing)
	if err != nil {
		res.Error = err.Error()
		a.log.Warn("axis estimator failed", "estimator", est.Name(), "error", err)
		return res
	}
	res.Lengths = lengths
	return res
}
