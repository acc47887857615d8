package measure

import (
	"golang.org/x/sync/errgroup"

	"ctmorphometry/internal/models"
)

// Scanner walks a mask slice by slice. With Workers > 1 the slices are
// scanned concurrently; slices are read-only and the per-slice results are
// merged afterwards, so the output does not depend on Workers.
type Scanner struct {
	Workers int
}

// Profile summarises which planes of a mask are occupied.
type Profile struct {
	// SliceCounts holds the number of true voxels in each slice.
	SliceCounts []int

	slices []bool
	rows   []bool
	cols   []bool
}

// Occupied returns, for every plane perpendicular to axis a, whether it
// contains at least one true voxel.
func (p *Profile) Occupied(a models.Axis) []bool {
	switch a {
	case models.AxisSlice:
		return p.slices
	case models.AxisRow:
		return p.rows
	default:
		return p.cols
	}
}

// CountOccupied returns the number of non-empty planes perpendicular to a.
func (p *Profile) CountOccupied(a models.Axis) int {
	n := 0
	for _, hit := range p.Occupied(a) {
		if hit {
			n++
		}
	}
	return n
}

// First returns the index of the first non-empty plane perpendicular to a.
func (p *Profile) First(a models.Axis) (int, bool) {
	for i, hit := range p.Occupied(a) {
		if hit {
			return i, true
		}
	}
	return 0, false
}

// Last returns the index of the last non-empty plane perpendicular to a.
func (p *Profile) Last(a models.Axis) (int, bool) {
	occ := p.Occupied(a)
	for i := len(occ) - 1; i >= 0; i-- {
		if occ[i] {
			return i, true
		}
	}
	return 0, false
}

// Total returns the number of true voxels.
func (p *Profile) Total() int {
	n := 0
	for _, c := range p.SliceCounts {
		n += c
	}
	return n
}

type sliceScan struct {
	count int
	rows  []bool
	cols  []bool
}

func scanSlice(mask *models.Mask, s int) sliceScan {
	out := sliceScan{
		rows: make([]bool, mask.Rows),
		cols: make([]bool, mask.Cols),
	}
	base := mask.Index(s, 0, 0)
	for r := 0; r < mask.Rows; r++ {
		off := base + r*mask.Cols
		for c := 0; c < mask.Cols; c++ {
			if mask.Data[off+c] {
				out.count++
				out.rows[r] = true
				out.cols[c] = true
			}
		}
	}
	return out
}

// Profile scans the mask once and records per-slice counts and plane
// occupancy along every axis.
func (sc Scanner) Profile(mask *models.Mask) *Profile {
	scans := make([]sliceScan, mask.Slices)

	if sc.Workers > 1 && mask.Slices > 1 {
		var g errgroup.Group
		g.SetLimit(sc.Workers)
		for s := 0; s < mask.Slices; s++ {
			g.Go(func() error {
				scans[s] = scanSlice(mask, s)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for s := 0; s < mask.Slices; s++ {
			scans[s] = scanSlice(mask, s)
		}
	}

	p := &Profile{
		SliceCounts: make([]int, mask.Slices),
		slices:      make([]bool, mask.Slices),
		rows:        make([]bool, mask.Rows),
		cols:        make([]bool, mask.Cols),
	}
	for s, scan := range scans {
		p.SliceCounts[s] = scan.count
		if scan.count == 0 {
			continue
		}
		p.slices[s] = true
		for r, hit := range scan.rows {
			if hit {
				p.rows[r] = true
			}
		}
		for c, hit := range scan.cols {
			if hit {
				p.cols[c] = true
			}
		}
	}
	return p
}
