// Package structure holds the in-memory molecular structure model: parsing
// and serialization of the supported file formats, species recognition by
// connectivity, and the geometric queries the substitution pipeline needs.
package structure

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Format tags the source file format of a structure.
type Format string

const (
	FormatXYZ Format = "xyz"
	FormatPDB Format = "pdb"
	FormatBGF Format = "bgf"
)

// Atom is one atom with its element symbol and cartesian coordinate in Å.
type Atom struct {
	Element string
	X, Y, Z float64
	// Residue is the residue/molecule id carried by PDB and BGF records,
	// zero when the format has none.
	Residue int
}

// Box is an axis-aligned region in Å.
type Box struct {
	Min [3]float64
	Max [3]float64
}

// Lengths returns the box edge lengths.
func (b Box) Lengths() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Volume returns the box volume in Å³.
func (b Box) Volume() float64 {
	l := b.Lengths()
	return l[0] * l[1] * l[2]
}

// MolecularStructure is an ordered sequence of atoms plus its source format.
// Atom order is preserved through parse/serialize round trips.
type MolecularStructure struct {
	Atoms   []Atom
	Format  Format
	Comment string
}

// Len returns the atom count.
func (s *MolecularStructure) Len() int { return len(s.Atoms) }

// BoundingBox returns the axis-aligned bounding box of all atoms.
// The zero Box is returned for an empty structure.
func (s *MolecularStructure) BoundingBox() Box {
	if len(s.Atoms) == 0 {
		return Box{}
	}
	b := Box{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, a := range s.Atoms {
		c := [3]float64{a.X, a.Y, a.Z}
		for i := 0; i < 3; i++ {
			if c[i] < b.Min[i] {
				b.Min[i] = c[i]
			}
			if c[i] > b.Max[i] {
				b.Max[i] = c[i]
			}
		}
	}
	return b
}

// ElementCounts returns raw per-element atom counts. This is NOT the species
// table: a structure of 50 O2 molecules counts as {"O": 100} here but
// {"O2": 50} in SpeciesTable.
func (s *MolecularStructure) ElementCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range s.Atoms {
		counts[a.Element]++
	}
	return counts
}

// Mass returns the total mass in amu. Unknown elements contribute zero.
func (s *MolecularStructure) Mass() float64 {
	var m float64
	for _, a := range s.Atoms {
		m += AtomicMass(a.Element)
	}
	return m
}

// MinimumDistance returns the smallest inter-atomic distance, or +Inf for
// structures with fewer than two atoms.
func (s *MolecularStructure) MinimumDistance() float64 {
	min := math.Inf(1)
	for i := 0; i < len(s.Atoms); i++ {
		for j := i + 1; j < len(s.Atoms); j++ {
			if d := distance(s.Atoms[i], s.Atoms[j]); d < min {
				min = d
			}
		}
	}
	return min
}

func distance(a, b Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Formula builds a species label from element counts: elements sorted
// alphabetically, count suffix omitted when 1 (H2O, O2, CO2, NO).
func Formula(counts map[string]int) string {
	elements := make([]string, 0, len(counts))
	for e := range counts {
		elements = append(elements, e)
	}
	sort.Strings(elements)
	var b strings.Builder
	for _, e := range elements {
		b.WriteString(e)
		if counts[e] > 1 {
			fmt.Fprintf(&b, "%d", counts[e])
		}
	}
	return b.String()
}
