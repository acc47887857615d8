package measure

import (
	"fmt"
	"sort"
	"strings"

	"ctmorphometry/internal/models"
)

// Names of the available axis estimators.
const (
	EstimatorPCA              = "pca"
	EstimatorThreePointFit    = "three-point"
	EstimatorExtremeHeuristic = "extreme"
)

// AxisLengths is the result of an axis estimator. Major and Minor are full
// axis lengths in mm.
type AxisLengths struct {
	Major float64 `yaml:"major"`
	Minor float64 `yaml:"minor"`

	// Semi holds the three semi-axis lengths. The ellipsoid fits report them
	// in (x, y, z) order; PCA reports principal semi-axes, longest first.
	Semi [3]float64 `yaml:"semi"`
}

// AxisEstimator approximates the segmented shape by an ellipsoid and reports
// its major and minor axes. Implementations trade robustness for speed
// differently and are kept side by side.
type AxisEstimator interface {
	Name() string
	Axes(mask *models.Mask, spacing models.Spacing) (AxisLengths, error)
}

var axisEstimators = map[string]AxisEstimator{
	EstimatorPCA:              PCA{},
	EstimatorThreePointFit:    ThreePointFit{},
	EstimatorExtremeHeuristic: ExtremeHeuristic{},
}

// AxisEstimatorNames lists the registered estimators in a stable order.
func AxisEstimatorNames() []string {
	names := make([]string, 0, len(axisEstimators))
	for name := range axisEstimators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AxisEstimatorByName looks up an estimator by its registered name.
func AxisEstimatorByName(name string) (AxisEstimator, error) {
	est, ok := axisEstimators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown axis estimator %q (want one of %s)", name, strings.Join(AxisEstimatorNames(), ", "))
	}
	return est, nil
}
