package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/analysis"
	"ctmorphometry/pkg/config"
	"ctmorphometry/pkg/logging"
	"ctmorphometry/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "ctmorphometry.yaml", "Path to the YAML configuration file")
	writeConfig := flag.String("write-config", "", "Write a default configuration file to this path and exit")
	dicomDir := flag.String("dicom", "", "Directory containing the CT series as .dcm files")
	volumeFile := flag.String("volume", "", "Intensity volume saved as .npy (used when -dicom is not given)")
	maskFile := flag.String("mask", "", "Lesion mask (.npz, .npy, .nii or .nii.gz)")
	maskEntry := flag.String("mask-entry", "", "Array name inside an .npz mask")
	spacingFile := flag.String("spacing-from", "", "DICOM file whose header supplies the voxel spacing")
	pixelSpacing := flag.Float64("pixel-spacing", 0, "In-plane pixel spacing in mm (overrides headers)")
	sliceThickness := flag.Float64("slice-thickness", 0, "Slice thickness in mm (overrides headers)")
	workers := flag.Int("workers", -1, "Number of goroutines for per-slice scans (default from config)")
	estimators := flag.String("axes", "", "Comma-separated axis estimators to run (pca, three-point, extreme)")
	format := flag.String("format", "", "Report format: text or yaml")
	preview := flag.String("preview", "", "Write a PNG of the lesion's central slice to this path")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags override the configuration file
	setString(&cfg.Input.DicomDir, *dicomDir)
	setString(&cfg.Input.VolumeFile, *volumeFile)
	setString(&cfg.Input.MaskFile, *maskFile)
	setString(&cfg.Input.MaskEntry, *maskEntry)
	setString(&cfg.Input.SpacingFile, *spacingFile)
	setString(&cfg.Output.Format, *format)
	setString(&cfg.Output.PreviewFile, *preview)
	if *workers >= 0 {
		cfg.Processing.NumWorkers = *workers
	}
	if *estimators != "" {
		cfg.Axis.Estimators = strings.Split(*estimators, ",")
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if (*pixelSpacing != 0) != (*sliceThickness != 0) {
		log.Fatalf("-pixel-spacing and -slice-thickness must be given together")
	}
	if cfg.Input.MaskFile == "" || (cfg.Input.DicomDir == "" && cfg.Input.VolumeFile == "") {
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Verbose:    cfg.Output.Verbose,
	}, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	src := analysis.Source{
		DicomDir:    cfg.Input.DicomDir,
		VolumeFile:  cfg.Input.VolumeFile,
		MaskFile:    cfg.Input.MaskFile,
		MaskEntry:   cfg.Input.MaskEntry,
		SpacingFile: cfg.Input.SpacingFile,
		Spacing: models.Spacing{
			PixelSpacing:   [2]float64{*pixelSpacing, *pixelSpacing},
			SliceThickness: *sliceThickness,
		},
	}

	logger.Info("loading inputs", "mask", src.MaskFile, "dicom", src.DicomDir, "volume", src.VolumeFile)
	model, err := analysis.LoadModel(src)
	if err != nil {
		logger.Error("failed to load inputs", "error", err)
		os.Exit(1)
	}

	analyzer, err := analysis.NewAnalyzer(&analysis.Params{
		Workers:           cfg.Processing.NumWorkers,
		CalibrationOffset: cfg.Processing.CalibrationOffset,
		AxisEstimators:    cfg.Axis.Estimators,
		Logger:            logger,
	})
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}

	report, err := analyzer.Process(model)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if err := writeReport(os.Stdout, report, cfg.Output.Format); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if cfg.Output.PreviewFile != "" {
		viewer, err := visualization.NewViewer(model.Intensity, model.Mask)
		if err != nil {
			log.Fatalf("Failed to create viewer: %v", err)
		}
		if err := viewer.SavePreview("z", cfg.Output.PreviewFile, 4); err != nil {
			logger.Warn("failed to save preview", "file", cfg.Output.PreviewFile, "error", err)
		} else {
			logger.Info("preview saved", "file", cfg.Output.PreviewFile)
		}
	}
}

func writeReport(w io.Writer, report *analysis.Report, format string) error {
	if strings.EqualFold(format, config.FormatYAML) {
		return report.WriteYAML(w)
	}
	return report.WriteText(w)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
