package arrayio

import (
	"fmt"

	"github.com/henghuang/nifti"

	"ctmorphometry/internal/models"
)

// LoadMaskNIfTI reads a segmentation stored as .nii or .nii.gz. NIfTI voxel
// (i, j, k) maps to mask (slice k, row j, column i); only the first time
// point is used.
func LoadMaskNIfTI(path string) (*models.Mask, error) {
	img, err := safelyNiftiImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read NIfTI %s: %w", path, err)
	}

	dims := img.GetDims()
	return maskFromVoxels(dims[:], func(x, y, z int) float64 {
		return float64(img.GetAt(x, y, z, 0))
	})
}

// SpacingFromNIfTI returns the voxel spacing recorded in a NIfTI header:
// pixdim[1] and pixdim[2] in-plane, pixdim[3] between slices.
func SpacingFromNIfTI(path string) (models.Spacing, error) {
	hdr, err := safelyNiftiHeader(path)
	if err != nil {
		return models.Spacing{}, fmt.Errorf("failed to read NIfTI header %s: %w", path, err)
	}

	sp := models.Spacing{
		PixelSpacing:   [2]float64{float64(hdr.Pixdim[2]), float64(hdr.Pixdim[1])},
		SliceThickness: float64(hdr.Pixdim[3]),
	}
	return sp, sp.Validate()
}

func maskFromVoxels(dims []int, at func(x, y, z int) float64) (*models.Mask, error) {
	if len(dims) < 3 || dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return nil, fmt.Errorf("invalid NIfTI dimensions %v", dims)
	}
	shape := models.Shape{Slices: dims[2], Rows: dims[1], Cols: dims[0]}

	m := models.NewMask(shape)
	for z := 0; z < shape.Slices; z++ {
		for y := 0; y < shape.Rows; y++ {
			for x := 0; x < shape.Cols; x++ {
				if at(x, y, z) != 0 {
					m.Set(z, y, x, true)
				}
			}
		}
	}
	return m, nil
}

// safelyNiftiImage turns panics raised by the nifti library on malformed
// input into errors.
func safelyNiftiImage(path string) (img nifti.Nifti1Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	img.LoadImage(path, true)
	return
}

func safelyNiftiHeader(path string) (hdr nifti.Nifti1Header, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	hdr.LoadHeader(path)
	return
}
