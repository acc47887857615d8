package analysis

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ctmorphometry/internal/models"
	"ctmorphometry/pkg/arrayio"
	"ctmorphometry/pkg/dicomio"
)

// Source describes where the inputs of one analysis live.
type Source struct {
	// DicomDir holds the CT series. Takes precedence over VolumeFile.
	DicomDir string

	// VolumeFile is an intensity array saved as .npy.
	VolumeFile string

	// MaskFile is the segmentation: .npz, .npy, .nii or .nii.gz.
	MaskFile string

	// MaskEntry names the array inside an .npz archive.
	MaskEntry string

	// Spacing, when set, overrides every header-derived spacing. It must be
	// either zero or complete.
	Spacing models.Spacing

	// SpacingFile is a DICOM file to read the spacing from.
	SpacingFile string
}

// LoadModel reads the intensity volume, the mask and the spacing described by
// src and assembles them into a validated model.
//
// Spacing is resolved in order: an explicit Spacing, the first file of
// DicomDir, SpacingFile, then the header of a NIfTI mask.
func LoadModel(src Source) (*models.VolumeMaskModel, error) {
	vol, err := loadVolume(src)
	if err != nil {
		return nil, err
	}

	mask, err := LoadMask(src.MaskFile, src.MaskEntry)
	if err != nil {
		return nil, err
	}

	spacing, err := resolveSpacing(src)
	if err != nil {
		return nil, err
	}

	return models.NewVolumeMaskModel(vol, mask, spacing)
}

func loadVolume(src Source) (*models.Volume, error) {
	switch {
	case src.DicomDir != "":
		vol, err := dicomio.LoadSeries(src.DicomDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load DICOM series: %w", err)
		}
		return vol, nil
	case src.VolumeFile != "":
		return arrayio.LoadVolumeNPY(src.VolumeFile)
	default:
		return nil, errors.New("no intensity volume given: set a DICOM directory or a volume file")
	}
}

// LoadMask picks a mask reader from the file extension.
func LoadMask(path, entry string) (*models.Mask, error) {
	if path == "" {
		return nil, errors.New("no mask file given")
	}

	switch maskFormat(path) {
	case ".npz":
		return arrayio.LoadMaskNPZ(path, entry)
	case ".npy":
		return arrayio.LoadMaskNPY(path)
	case ".nii", ".nii.gz":
		return arrayio.LoadMaskNIfTI(path)
	default:
		return nil, fmt.Errorf("unsupported mask format %q", filepath.Ext(path))
	}
}

func maskFormat(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".nii.gz") {
		return ".nii.gz"
	}
	return filepath.Ext(lower)
}

func resolveSpacing(src Source) (models.Spacing, error) {
	if src.Spacing != (models.Spacing{}) {
		if err := src.Spacing.Validate(); err != nil {
			return models.Spacing{}, fmt.Errorf("explicit spacing is incomplete: %w", err)
		}
		return src.Spacing, nil
	}
	if src.DicomDir != "" {
		return dicomio.SpacingFromDir(src.DicomDir)
	}
	if src.SpacingFile != "" {
		return dicomio.ReadSpacing(src.SpacingFile)
	}
	switch maskFormat(src.MaskFile) {
	case ".nii", ".nii.gz":
		return arrayio.SpacingFromNIfTI(src.MaskFile)
	}
	return models.Spacing{}, fmt.Errorf("%w: no spacing source given", models.ErrInvalidSpacing)
}
