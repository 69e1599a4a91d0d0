package structure

// Atomic masses in amu and covalent radii in Å for the elements that show up
// in the supported workflows. Values beyond this set fall back to defaults
// rather than failing a parse.

var atomicMasses = map[string]float64{
	"H": 1.008, "He": 4.003,
	"Li": 6.941, "Be": 9.012, "B": 10.811, "C": 12.011, "N": 14.007,
	"O": 15.999, "F": 18.998, "Ne": 20.180,
	"Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.086, "P": 30.974,
	"S": 32.065, "Cl": 35.453, "Ar": 39.948,
	"K": 39.098, "Ca": 40.078, "Ti": 47.867, "Cr": 51.996, "Mn": 54.938,
	"Fe": 55.845, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38,
	"Br": 79.904, "Ag": 107.868, "I": 126.904, "Au": 196.967,
}

var covalentRadii = map[string]float64{
	"H": 0.31, "He": 0.28,
	"Li": 1.28, "Be": 0.96, "B": 0.84, "C": 0.76, "N": 0.71,
	"O": 0.66, "F": 0.57, "Ne": 0.58,
	"Na": 1.66, "Mg": 1.41, "Al": 1.21, "Si": 1.11, "P": 1.07,
	"S": 1.05, "Cl": 1.02, "Ar": 1.06,
	"K": 2.03, "Ca": 1.76, "Ti": 1.60, "Cr": 1.39, "Mn": 1.39,
	"Fe": 1.32, "Ni": 1.24, "Cu": 1.32, "Zn": 1.22,
	"Br": 1.20, "Ag": 1.45, "I": 1.39, "Au": 1.36,
}

// AtomicMass returns the mass of an element in amu, or a carbon-like default
// for unknown symbols.
func AtomicMass(element string) float64 {
	if m, ok := atomicMasses[element]; ok {
		return m
	}
	return 12.011
}

// CovalentRadius returns the covalent radius of an element in Å, or a
// carbon-like default for unknown symbols.
func CovalentRadius(element string) float64 {
	if r, ok := covalentRadii[element]; ok {
		return r
	}
	return 0.76
}
