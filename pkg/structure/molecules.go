package structure

// Species recognition. Atoms are grouped into molecules by a bonding
// heuristic (two atoms bond when their distance is below bondFactor times
// the sum of their covalent radii) and whole molecules are matched against
// species labels. A removal request for "O2" therefore removes bonded
// oxygen pairs, never lone oxygen atoms belonging to other molecules.

// bondFactor multiplies the covalent radii sum to decide bonding.
const bondFactor = 1.2

// Molecule is a connected group of atoms with its derived formula.
type Molecule struct {
	Formula string
	// AtomIndices are positions into the parent structure's atom slice,
	// in their original order.
	AtomIndices []int
}

// Molecules groups the structure's atoms into molecules by connectivity.
// Residue ids, when present, act as a hard partition: atoms from different
// residues are never merged even when close.
func (s *MolecularStructure) Molecules() []Molecule {
	n := len(s.Atoms)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ai, aj := s.Atoms[i], s.Atoms[j]
			if ai.Residue != aj.Residue {
				continue
			}
			cutoff := bondFactor * (CovalentRadius(ai.Element) + CovalentRadius(aj.Element))
			if distance(ai, aj) <= cutoff {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	order := []int{}
	for i := 0; i < n; i++ {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	molecules := make([]Molecule, 0, len(order))
	for _, root := range order {
		indices := groups[root]
		counts := make(map[string]int)
		for _, idx := range indices {
			counts[s.Atoms[idx].Element]++
		}
		molecules = append(molecules, Molecule{
			Formula:     Formula(counts),
			AtomIndices: indices,
		})
	}
	return molecules
}

// SpeciesTable maps species label to molecule count, built by connectivity
// grouping rather than raw symbol matching.
func (s *MolecularStructure) SpeciesTable() map[string]int {
	table := make(map[string]int)
	for _, m := range s.Molecules() {
		table[m.Formula]++
	}
	return table
}

// RemoveSpecies returns a copy of the structure with every molecule matching
// the species label removed, plus the number of removed molecules. Molecules
// are removed whole; atom order among survivors is preserved. Removing a
// species that is not present is a no-op.
func (s *MolecularStructure) RemoveSpecies(species string) (*MolecularStructure, int) {
	drop := make(map[int]bool)
	removed := 0
	for _, m := range s.Molecules() {
		if m.Formula != species {
			continue
		}
		removed++
		for _, idx := range m.AtomIndices {
			drop[idx] = true
		}
	}

	cleaned := &MolecularStructure{
		Format:  s.Format,
		Comment: s.Comment,
		Atoms:   make([]Atom, 0, len(s.Atoms)-len(drop)),
	}
	for i, a := range s.Atoms {
		if !drop[i] {
			cleaned.Atoms = append(cleaned.Atoms, a)
		}
	}
	return cleaned, removed
}
