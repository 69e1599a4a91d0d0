package structure

// Gas molecule templates used by the substitution pipeline. Bond lengths are
// the standard gas-phase values (N2 1.10 Å, O2 1.21 Å, C=O in CO2 1.16 Å).
// Species without a template become a single atom at the origin.

var gasTemplates = map[string][]Atom{
	"O":  {{Element: "O"}},
	"N":  {{Element: "N"}},
	"H":  {{Element: "H"}},
	"N2": {{Element: "N"}, {Element: "N", Z: 1.10}},
	"O2": {{Element: "O"}, {Element: "O", Z: 1.21}},
	"H2": {{Element: "H"}, {Element: "H", Z: 0.74}},
	"CO2": {
		{Element: "C"},
		{Element: "O", Z: 1.16},
		{Element: "O", Z: -1.16},
	},
	"H2O": {
		{Element: "O"},
		{Element: "H", X: 0.7572, Z: 0.5865},
		{Element: "H", X: -0.7572, Z: 0.5865},
	},
}

// GasTemplate synthesizes the replacement gas molecule for a species label.
// Unknown species fall back to a single atom of that symbol, matching the
// packing tool's expectation of at least one atom per molecule block.
func GasTemplate(species string) *MolecularStructure {
	atoms, ok := gasTemplates[species]
	if !ok {
		atoms = []Atom{{Element: species}}
	}
	tpl := &MolecularStructure{
		Format:  FormatXYZ,
		Comment: species + " template",
		Atoms:   make([]Atom, len(atoms)),
	}
	copy(tpl.Atoms, atoms)
	return tpl
}

// MoleculeMass returns the mass in amu of one molecule of the species.
func MoleculeMass(species string) float64 {
	return GasTemplate(species).Mass()
}
