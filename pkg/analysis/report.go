package analysis

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/measure"
)

const separator = "----------------------------------"

// AxisResult is the outcome of one axis estimator.
type AxisResult struct {
	Estimator string              `yaml:"estimator"`
	Lengths   measure.AxisLengths `yaml:"lengths"`
	Error     string              `yaml:"error,omitempty"`
}

// Failed reports whether the estimator returned an error.
func (r AxisResult) Failed() bool { return r.Error != "" }

// Report collects every measurement taken over one lesion.
type Report struct {
	Shape      models.Shape   `yaml:"shape"`
	Spacing    models.Spacing `yaml:"spacing"`
	MaskVoxels int            `yaml:"maskVoxels"`

	Extents   measure.Extents `yaml:"extents"`
	VolumeCM3 float64         `yaml:"volumeCm3"`

	// Density is nil when no masked voxel had a positive calibrated value.
	Density *measure.DensityStats `yaml:"density,omitempty"`

	Axes []AxisResult `yaml:"axes"`

	SphereRadius float64 `yaml:"sphereRadius"`

	Errors []string `yaml:"errors,omitempty"`
}

// Axis returns the result of the named estimator.
func (r *Report) Axis(name string) (AxisResult, bool) {
	for _, res := range r.Axes {
		if res.Estimator == name {
			return res, true
		}
	}
	return AxisResult{}, false
}

func (r *Report) addError(stage string, err error) {
	var estErr *measure.EstimatorError
	if errors.As(err, &estErr) {
		r.Errors = append(r.Errors, err.Error())
		return
	}
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", stage, err))
}

// WriteText prints the report as labelled blocks separated by rules.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	if r.Density != nil {
		fmt.Fprintf(&b, "mean density value = %g\n", r.Density.Mean)
		fmt.Fprintf(&b, "median density value = %g\n", r.Density.Median)
		fmt.Fprintf(&b, "std density value = %g\n", r.Density.Std)
	} else {
		b.WriteString("density = n/a\n")
	}
	b.WriteString(separator + "\n")

	fmt.Fprintf(&b, "x-max = %g mm\n", r.Extents.X)
	fmt.Fprintf(&b, "y-max = %g mm\n", r.Extents.Y)
	fmt.Fprintf(&b, "z-max = %g mm\n", r.Extents.Z)
	b.WriteString(separator + "\n")

	fmt.Fprintf(&b, "Volume = %g cm^3\n", r.VolumeCM3)
	b.WriteString(separator + "\n")

	for _, res := range r.Axes {
		if res.Failed() {
			fmt.Fprintf(&b, "axes %s = n/a (%s)\n", res.Estimator, res.Error)
			continue
		}
		fmt.Fprintf(&b, "major %s = %g mm\n", res.Estimator, res.Lengths.Major)
		fmt.Fprintf(&b, "minor %s = %g mm\n", res.Estimator, res.Lengths.Minor)
	}
	b.WriteString(separator + "\n")

	fmt.Fprintf(&b, "Sphere radius = %g mm\n", r.SphereRadius)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteYAML encodes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	return enc.Close()
}
