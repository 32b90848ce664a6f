// pkg/dataset/gapfill.go
package dataset

import (
	"sort"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Overlap is a pair of intervals whose depth ranges intersect
type Overlap struct {
	Upper model.Interval
	Lower model.Interval
}

// GapFiller makes a well's interval sequence depth-contiguous
type GapFiller struct {
	// Fill from depth 0 down to the shallowest top as well
	FromSurface bool
	// Shape of placeholder rows
	Classes int
	Layers  int
}

// SortIntervals orders by top, then bottom, then input order. An interval without a top
// takes its bottom as its position, so it lands after every interval that starts above it.
func SortIntervals(ivs []model.Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		at, bt := a.Top.Or(a.Bottom), b.Top.Or(b.Bottom)
		if at != bt {
			return at < bt
		}
		if a.Bottom != b.Bottom {
			return a.Bottom < b.Bottom
		}
		return a.Seq < b.Seq
	})
}

// Fill sorts ivs and inserts NA placeholders over every uncovered depth range between the
// shallowest top and the deepest bottom. Overlapping intervals are kept and reported.
// An interval without a top is taken to start where the one above it ends: it is never
// preceded by a placeholder but extends the covered range to its bottom.
func (g GapFiller) Fill(ivs []model.Interval) ([]model.Interval, []Overlap) {
	if len(ivs) == 0 {
		return ivs, nil
	}

	sorted := make([]model.Interval, len(ivs))
	copy(sorted, ivs)
	SortIntervals(sorted)

	out := make([]model.Interval, 0, len(sorted))
	var overlaps []Overlap

	// reach is the deepest bottom seen so far; reachIdx points at the interval in out
	// that set it, or -1 while it is still the land surface.
	haveReach := g.FromSurface
	reach := 0.0
	reachIdx := -1

	for _, iv := range sorted {
		top, ok := iv.Top.Get()
		if !ok {
			out = append(out, iv)
			if !haveReach || iv.Bottom > reach {
				reach = iv.Bottom
				reachIdx = len(out) - 1
				haveReach = true
			}
			continue
		}
		if haveReach {
			if reach < top {
				out = append(out, g.placeholder(iv.WellID, reach, top))
			} else if reach > top && reachIdx >= 0 {
				overlaps = append(overlaps, Overlap{Upper: out[reachIdx], Lower: iv})
			}
		}
		out = append(out, iv)
		if !haveReach || iv.Bottom > reach {
			reach = iv.Bottom
			reachIdx = len(out) - 1
			haveReach = true
		}
	}

	return out, overlaps
}

func (g GapFiller) placeholder(wellID int, top, bottom float64) model.Interval {
	return model.Interval{
		WellID:      wellID,
		Top:         model.Some(top),
		Bottom:      bottom,
		Classes:     model.NAValues(g.Classes),
		HSU:         model.NAValues(g.Layers),
		Placeholder: true,
	}
}
