// pkg/t2p/pilotpoint.go
package t2p

import (
	"fmt"
	"slices"
	"strings"
)

var (
	aquiferParameters  = []string{"KCMin", "deltaKC", "KFMin", "deltaKF", "SsC", "SsF", "SyC", "SyF", "AnisoC", "AnisoF"}
	aquitardParameters = []string{"KCMin", "deltaKC", "KFMin", "deltaKF", "AnisoC", "AnisoF"}
)

// PilotPoint holds the hydraulic parameters interpolated from one location. Aquitard points
// carry no storage parameters.
type PilotPoint struct {
	X, Y    float64
	KCMin   float64
	DeltaKC float64
	KFMin   float64
	DeltaKF float64
	SsC     float64
	SsF     float64
	SyC     float64
	SyF     float64
	AnisoC  float64
	AnisoF  float64
	Zone    int

	Aquitard bool
	estimate map[string]bool
}

// NewPilotPoint returns an aquifer pilot point with anisotropies of 10 in zone 1
func NewPilotPoint(x, y, kcMin, deltaKC, kfMin, deltaKF, ssC, ssF, syC, syF float64) *PilotPoint {
	return &PilotPoint{
		X: x, Y: y,
		KCMin: kcMin, DeltaKC: deltaKC,
		KFMin: kfMin, DeltaKF: deltaKF,
		SsC: ssC, SsF: ssF,
		SyC: syC, SyF: syF,
		AnisoC: 10, AnisoF: 10,
		Zone: 1,
	}
}

// NewAquitardPilotPoint returns an aquitard pilot point with anisotropies of 10 in zone 1
func NewAquitardPilotPoint(x, y, kcMin, deltaKC, kfMin, deltaKF float64) *PilotPoint {
	return &PilotPoint{
		X: x, Y: y,
		KCMin: kcMin, DeltaKC: deltaKC,
		KFMin: kfMin, DeltaKF: deltaKF,
		AnisoC: 10, AnisoF: 10,
		Zone:     1,
		Aquitard: true,
	}
}

// Parameters lists the names SetEstimated accepts, in line order
func (p *PilotPoint) Parameters() []string {
	if p.Aquitard {
		return append([]string(nil), aquitardParameters...)
	}
	return append([]string(nil), aquiferParameters...)
}

// SetEstimated marks parameters to be written as PEST template fields. Unknown names leave
// the point unchanged.
func (p *PilotPoint) SetEstimated(names ...string) error {
	if err := checkNames(p.Parameters(), names); err != nil {
		return err
	}
	if p.estimate == nil {
		p.estimate = make(map[string]bool)
	}
	for _, n := range names {
		p.estimate[n] = true
	}
	return nil
}

// Estimated returns the parameters set for estimation, in line order
func (p *PilotPoint) Estimated() []string {
	var out []string
	for _, n := range p.Parameters() {
		if p.estimate[n] {
			out = append(out, n)
		}
	}
	return out
}

type field struct {
	name  string // empty for x, y and zone
	value string
}

func (p *PilotPoint) fields() []field {
	f2 := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	e3 := func(v float64) string { return fmt.Sprintf("%.3e", v) }

	out := []field{
		{"", f2(p.X)}, {"", f2(p.Y)},
		{"KCMin", f2(p.KCMin)}, {"deltaKC", f2(p.DeltaKC)},
		{"KFMin", f2(p.KFMin)}, {"deltaKF", f2(p.DeltaKF)},
	}
	if !p.Aquitard {
		out = append(out,
			field{"SsC", e3(p.SsC)}, field{"SsF", e3(p.SsF)},
			field{"SyC", e3(p.SyC)}, field{"SyF", e3(p.SyF)})
	}
	return append(out,
		field{"AnisoC", f2(p.AnisoC)}, field{"AnisoF", f2(p.AnisoF)},
		field{"", fmt.Sprintf("%d", p.Zone)})
}

// line renders the point. In template mode estimated parameters become delimited fields
// named <parameter>_<index>.
func (p *PilotPoint) line(index int, template bool, delim string) string {
	fields := p.fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.value
		if template && f.name != "" && p.estimate[f.name] {
			parts[i] = templateField(fmt.Sprintf("%s_%02d", f.name, index), delim)
		}
	}
	return strings.Join(parts, " ") + "\n"
}

func templateField(name, delim string) string {
	return fmt.Sprintf("%s %-12s %s", delim, name, delim)
}

func checkNames(known, names []string) error {
	for _, n := range names {
		if !slices.Contains(known, n) {
			return fmt.Errorf("%w: %q (available: %s)", ErrUnknownParameter, n, strings.Join(known, ", "))
		}
	}
	return nil
}
