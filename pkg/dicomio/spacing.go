package dicomio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"ctmorphometry/internal/models"
)

// ReadSpacing reads PixelSpacing and SliceThickness from the header of a
// single DICOM file. Pixel data is not decoded.
func ReadSpacing(path string) (models.Spacing, error) {
	ds, err := safelyParseFile(path, dicom.SkipPixelData())
	if err != nil {
		return models.Spacing{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sp, err := spacingFromDataset(ds)
	if err != nil {
		return models.Spacing{}, fmt.Errorf("%s: %w", path, err)
	}
	return sp, nil
}

// SpacingFromDir reads the spacing of the first file of the series in dir.
func SpacingFromDir(dir string) (models.Spacing, error) {
	files, err := ListSeries(dir)
	if err != nil {
		return models.Spacing{}, err
	}
	return ReadSpacing(files[0])
}

func spacingFromDataset(ds dicom.Dataset) (models.Spacing, error) {
	ps, err := decimalStrings(ds, tag.PixelSpacing)
	if err != nil {
		return models.Spacing{}, err
	}
	if len(ps) != 2 {
		return models.Spacing{}, fmt.Errorf("PixelSpacing has %d values, need 2", len(ps))
	}

	st, err := decimalStrings(ds, tag.SliceThickness)
	if err != nil {
		return models.Spacing{}, err
	}
	if len(st) != 1 {
		return models.Spacing{}, fmt.Errorf("SliceThickness has %d values, need 1", len(st))
	}

	sp := models.Spacing{
		PixelSpacing:   [2]float64{ps[0], ps[1]},
		SliceThickness: st[0],
	}
	return sp, sp.Validate()
}

// decimalStrings parses a DS (decimal string) element into floats.
func decimalStrings(ds dicom.Dataset, t tag.Tag) ([]float64, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, fmt.Errorf("could not find tag %v: %w", t, err)
	}

	raw, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil, fmt.Errorf("tag %v does not hold strings", t)
	}

	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("tag %v: %w", t, err)
		}
		out = append(out, v)
	}
	return out, nil
}
