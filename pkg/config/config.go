// Package config provides configuration loading and management for ctmorphometry.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"ctmorphometry/pkg/logging"
	"ctmorphometry/pkg/measure"
)

// Report formats accepted by Output.Format.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input locations
	Input struct {
		// DicomDir is a directory of single-slice .dcm files forming the CT series
		DicomDir string `yaml:"dicomDir"`

		// VolumeFile is a 3-D intensity array saved as .npy, used when no DICOM directory is given
		VolumeFile string `yaml:"volumeFile"`

		// MaskFile is the lesion segmentation (.npz, .npy, .nii or .nii.gz)
		MaskFile string `yaml:"maskFile"`

		// MaskEntry names the array inside an .npz archive
		MaskEntry string `yaml:"maskEntry"`

		// SpacingFile is a DICOM file whose header supplies the voxel spacing
		SpacingFile string `yaml:"spacingFile"`
	} `yaml:"input"`

	// Processing parameters
	Processing struct {
		// NumWorkers bounds the goroutines used for per-slice scans
		NumWorkers int `yaml:"numWorkers"`

		// CalibrationOffset is subtracted from raw intensities before density statistics; 0 means the default
		CalibrationOffset float64 `yaml:"calibrationOffset"`
	} `yaml:"processing"`

	// Axis estimation
	Axis struct {
		// Estimators lists the axis estimators to run, by name
		Estimators []string `yaml:"estimators"`
	} `yaml:"axis"`

	// Output parameters
	Output struct {
		// Format is the report format, text or yaml
		Format string `yaml:"format"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// PreviewFile, when set, receives a PNG of the mask's central slice
		PreviewFile string `yaml:"previewFile"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// File receives log output; empty means stderr
		File string `yaml:"file"`

		// Level is one of debug, info, warn (or warning), error
		Level string `yaml:"level"`

		// MaxSizeMB is the size at which the log file is rotated
		MaxSizeMB int `yaml:"maxSizeMB"`

		// MaxAgeDays is how long rotated log files are kept
		MaxAgeDays int `yaml:"maxAgeDays"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.MaskEntry = "arr_0"

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.CalibrationOffset = measure.DefaultCalibrationOffset

	cfg.Axis.Estimators = measure.AxisEstimatorNames()

	cfg.Output.Format = FormatText
	cfg.Output.Verbose = false

	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxAgeDays = 28

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can drive an analysis run.
// Missing input paths are not checked here; the CLI may still supply them.
func (c *Config) Validate() error {
	var errs []error

	if c.Processing.NumWorkers < 0 {
		errs = append(errs, fmt.Errorf("processing.numWorkers must not be negative, got %d", c.Processing.NumWorkers))
	}
	if len(c.Axis.Estimators) == 0 {
		errs = append(errs, errors.New("axis.estimators must name at least one estimator"))
	}
	for _, name := range c.Axis.Estimators {
		if _, err := measure.AxisEstimatorByName(name); err != nil {
			errs = append(errs, fmt.Errorf("axis.estimators: %w", err))
		}
	}
	switch strings.ToLower(c.Output.Format) {
	case FormatText, FormatYAML:
	default:
		errs = append(errs, fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatYAML, c.Output.Format))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
