// Package geometry computes gas placement regions from target density and
// molecule count.
//
// Units and the density relation: lengths are Å, molecule masses amu, mass
// densities g/cm³. One amu/Å³ equals 1.66053907 g/cm³, so the gas region
// volume follows from
//
//	density = count · moleculeMass · 1.66053907 / volume
//
// The gas region shares the source box's x/y footprint and extends upward
// along z from the source box top plus the z offset; the final box is the
// union of both. When the caller also supplies an explicit gas box, its
// volume must agree with the density equation within tolerance — a mismatch
// is a configuration error, never silently resolved.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/structure"
)

// amuPerCm3 converts amu/Å³ to g/cm³.
const amuPerCm3 = 1.66053907

// relTolerance is the accepted relative disagreement between an explicit
// box volume and the volume implied by density and count.
const relTolerance = 0.05

// PlacementGeometry is the resolved placement for a packing run.
type PlacementGeometry struct {
	Count        int
	Density      float64
	MoleculeMass float64
	SourceBox    structure.Box
	// GasRegion is where the packing tool may place gas molecules.
	GasRegion structure.Box
	// FinalBox is the destination box: source united with the gas region.
	FinalBox structure.Box
	Offset   [3]float64
}

// Spec is an optional explicit geometry override, usually parsed from a
// "gas-box:23x23x23,offset-z:10,final-box:24x140x80" string.
type Spec struct {
	GasBox   *[3]float64
	FinalBox *[3]float64
	Offset   [3]float64
}

// Compute solves for a placement consistent with the density equation.
// It fails with FailGeometry — carrying the offending numbers — instead of
// clamping, whenever the inputs are numerically inconsistent or physically
// impossible given the packing tolerance.
func Compute(source structure.Box, density float64, count int, moleculeMass float64, tolerance float64, spec *Spec) (*PlacementGeometry, error) {
	if count <= 0 {
		return nil, domain.Failf(domain.FailGeometry, "molecule count must be positive, got %d", count)
	}
	if density <= 0 {
		return nil, domain.Failf(domain.FailGeometry, "density must be positive, got %g g/cm³", density)
	}
	if moleculeMass <= 0 {
		return nil, domain.Failf(domain.FailGeometry, "molecule mass must be positive, got %g amu", moleculeMass)
	}

	required := float64(count) * moleculeMass * amuPerCm3 / density // Å³

	// Minimum-separation packing limit: each molecule needs at least a
	// sphere of diameter equal to the packing tolerance.
	if tolerance > 0 {
		perMolecule := math.Pi / 6 * tolerance * tolerance * tolerance
		if required/float64(count) < perMolecule {
			return nil, domain.Failf(domain.FailGeometry,
				"density %g g/cm³ leaves %.2f Å³ per molecule, below the %.2f Å³ packing limit at tolerance %.1f Å",
				density, required/float64(count), perMolecule, tolerance)
		}
	}

	g := &PlacementGeometry{
		Count:        count,
		Density:      density,
		MoleculeMass: moleculeMass,
		SourceBox:    source,
	}
	if spec != nil {
		g.Offset = spec.Offset
	}

	lengths := source.Lengths()
	if spec != nil && spec.GasBox != nil {
		// Explicit gas box: verify against the density equation.
		gb := *spec.GasBox
		volume := gb[0] * gb[1] * gb[2]
		if volume <= 0 {
			return nil, domain.Failf(domain.FailGeometry,
				"gas box %gx%gx%g has non-positive volume", gb[0], gb[1], gb[2])
		}
		if rel := math.Abs(volume-required) / required; rel > relTolerance {
			return nil, domain.Failf(domain.FailGeometry,
				"gas box volume %.1f Å³ disagrees with density equation: %d × %.3f amu at %g g/cm³ needs %.1f Å³ (off by %.0f%%)",
				volume, count, moleculeMass, density, required, rel*100)
		}
		base := source.Max[2] + g.Offset[2]
		g.GasRegion = structure.Box{
			Min: [3]float64{source.Min[0] + g.Offset[0], source.Min[1] + g.Offset[1], base},
			Max: [3]float64{source.Min[0] + g.Offset[0] + gb[0], source.Min[1] + g.Offset[1] + gb[1], base + gb[2]},
		}
	} else {
		// Solve for the gas region height on the source footprint.
		if lengths[0] <= 0 || lengths[1] <= 0 {
			return nil, domain.Failf(domain.FailGeometry,
				"source box footprint %.1f×%.1f Å cannot host a gas region", lengths[0], lengths[1])
		}
		height := required / (lengths[0] * lengths[1])
		base := source.Max[2] + g.Offset[2]
		g.GasRegion = structure.Box{
			Min: [3]float64{source.Min[0], source.Min[1], base},
			Max: [3]float64{source.Max[0], source.Max[1], base + height},
		}
	}

	g.FinalBox = union(source, g.GasRegion)

	if spec != nil && spec.FinalBox != nil {
		fb := *spec.FinalBox
		want := fb[0] * fb[1] * fb[2]
		got := g.FinalBox.Volume()
		if want <= 0 {
			return nil, domain.Failf(domain.FailGeometry,
				"final box %gx%gx%g has non-positive volume", fb[0], fb[1], fb[2])
		}
		// The declared final box must at least contain the computed one.
		if want < got*(1-relTolerance) {
			return nil, domain.Failf(domain.FailGeometry,
				"declared final box volume %.1f Å³ cannot contain source plus gas region (%.1f Å³)", want, got)
		}
		g.FinalBox = structure.Box{
			Min: g.FinalBox.Min,
			Max: [3]float64{g.FinalBox.Min[0] + fb[0], g.FinalBox.Min[1] + fb[1], g.FinalBox.Min[2] + fb[2]},
		}
	}

	return g, nil
}

// AchievedDensity returns the mass density of count molecules in the gas
// region, in g/cm³.
func (g *PlacementGeometry) AchievedDensity() float64 {
	v := g.GasRegion.Volume()
	if v <= 0 {
		return 0
	}
	return float64(g.Count) * g.MoleculeMass * amuPerCm3 / v
}

func union(a, b structure.Box) structure.Box {
	u := a
	for i := 0; i < 3; i++ {
		if b.Min[i] < u.Min[i] {
			u.Min[i] = b.Min[i]
		}
		if b.Max[i] > u.Max[i] {
			u.Max[i] = b.Max[i]
		}
	}
	return u
}

// ParseSpec parses the compact geometry override string, e.g.
// "gas-box:23x23x23,offset-z:10,final-box:24x140x80". Empty input yields a
// nil spec.
func ParseSpec(raw string) (*Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	spec := &Spec{}
	for _, part := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, fmt.Errorf("geometry: malformed clause %q", part)
		}
		switch key {
		case "gas-box":
			dims, err := parseDims(value)
			if err != nil {
				return nil, fmt.Errorf("geometry: gas-box: %w", err)
			}
			spec.GasBox = &dims
		case "final-box":
			dims, err := parseDims(value)
			if err != nil {
				return nil, fmt.Errorf("geometry: final-box: %w", err)
			}
			spec.FinalBox = &dims
		case "offset-x", "offset-y", "offset-z":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("geometry: %s: %w", key, err)
			}
			spec.Offset[key[len(key)-1]-'x'] = v
		default:
			return nil, fmt.Errorf("geometry: unknown clause %q", key)
		}
	}
	return spec, nil
}

func parseDims(value string) ([3]float64, error) {
	var dims [3]float64
	parts := strings.Split(value, "x")
	if len(parts) != 3 {
		return dims, fmt.Errorf("want AxBxC, got %q", value)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return dims, fmt.Errorf("bad dimension %q", p)
		}
		dims[i] = v
	}
	return dims, nil
}
