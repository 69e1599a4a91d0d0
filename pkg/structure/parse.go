package structure

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/probaah/probaah/pkg/domain"
)

// Parse reads a structure file. When declared is empty the format is
// detected from the file content (not the extension alone). Malformed atom
// counts and truncated blocks fail with a FailParse failure, which the
// orchestrator never retries.
func Parse(path string, declared Format) (*MolecularStructure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFailure(domain.FailParse,
			fmt.Errorf("read structure %s: %w", path, err), "")
	}
	return ParseBytes(data, declared, filepath.Ext(path))
}

// ParseBytes parses structure content. ext is the original file extension
// used as a detection tiebreaker; it may be empty.
func ParseBytes(data []byte, declared Format, ext string) (*MolecularStructure, error) {
	format := declared
	if format == "" {
		format = detectFormat(data, ext)
	}
	switch format {
	case FormatXYZ:
		return parseXYZ(data)
	case FormatPDB:
		return parsePDB(data)
	case FormatBGF:
		return parseBGF(data)
	default:
		return nil, domain.Failf(domain.FailParse, "unsupported structure format %q", format)
	}
}

// detectFormat sniffs the content. An integer first line means XYZ; a BIOGRF
// header means BGF; ATOM/HETATM records mean PDB unless the extension says
// .bgf/.geo.
func detectFormat(data []byte, ext string) Format {
	text := string(data)
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, err := strconv.Atoi(trimmed); err == nil {
			return FormatXYZ
		}
		break
	}
	if strings.Contains(text, "BIOGRF") || strings.Contains(text, "XTLGRF") {
		return FormatBGF
	}
	switch strings.ToLower(ext) {
	case ".bgf", ".geo":
		return FormatBGF
	case ".xyz":
		return FormatXYZ
	}
	return FormatPDB
}

func parseXYZ(data []byte) (*MolecularStructure, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, domain.Failf(domain.FailParse, "xyz: empty file")
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || count < 0 {
		return nil, domain.Failf(domain.FailParse, "xyz: malformed atom count %q", strings.TrimSpace(scanner.Text()))
	}

	s := &MolecularStructure{Format: FormatXYZ}
	if scanner.Scan() {
		s.Comment = strings.TrimSpace(scanner.Text())
	} else if count > 0 {
		return nil, domain.Failf(domain.FailParse, "xyz: missing comment line")
	}

	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			return nil, domain.Failf(domain.FailParse,
				"xyz: declared %d atoms, found %d", count, i)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return nil, domain.Failf(domain.FailParse, "xyz: atom line %d too short", i+3)
		}
		atom := Atom{Element: fields[0]}
		coords := [3]*float64{&atom.X, &atom.Y, &atom.Z}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, domain.Failf(domain.FailParse,
					"xyz: bad coordinate %q on line %d", fields[j+1], i+3)
			}
			*coords[j] = v
		}
		s.Atoms = append(s.Atoms, atom)
	}
	return s, nil
}

func parsePDB(data []byte) (*MolecularStructure, error) {
	s := &MolecularStructure{Format: FormatPDB}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			return nil, domain.Failf(domain.FailParse, "pdb: truncated record on line %d", lineNo)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, domain.Failf(domain.FailParse, "pdb: bad coordinates on line %d", lineNo)
		}

		element := ""
		if len(line) >= 78 {
			element = strings.TrimSpace(line[76:78])
		}
		if element == "" {
			// Fall back to the atom name column, stripped of digits.
			name := strings.TrimSpace(line[12:16])
			element = strings.TrimFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
		}
		if element == "" {
			return nil, domain.Failf(domain.FailParse, "pdb: missing element on line %d", lineNo)
		}
		element = normalizeElement(element)

		residue := 0
		if len(line) >= 26 {
			if r, err := strconv.Atoi(strings.TrimSpace(line[22:26])); err == nil {
				residue = r
			}
		}
		s.Atoms = append(s.Atoms, Atom{Element: element, X: x, Y: y, Z: z, Residue: residue})
	}
	if len(s.Atoms) == 0 {
		return nil, domain.Failf(domain.FailParse, "pdb: no ATOM/HETATM records")
	}
	return s, nil
}

func parseBGF(data []byte) (*MolecularStructure, error) {
	s := &MolecularStructure{Format: FormatBGF}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, domain.Failf(domain.FailParse, "bgf: truncated record on line %d", lineNo)
		}
		x, errX := strconv.ParseFloat(fields[3], 64)
		y, errY := strconv.ParseFloat(fields[4], 64)
		z, errZ := strconv.ParseFloat(fields[5], 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, domain.Failf(domain.FailParse, "bgf: bad coordinates on line %d", lineNo)
		}
		s.Atoms = append(s.Atoms, Atom{Element: normalizeElement(fields[2]), X: x, Y: y, Z: z})
	}
	if len(s.Atoms) == 0 {
		return nil, domain.Failf(domain.FailParse, "bgf: no ATOM/HETATM records")
	}
	return s, nil
}

// normalizeElement maps force-field atom labels like "CA" or "o" to element
// symbol casing.
func normalizeElement(raw string) string {
	raw = strings.TrimFunc(raw, func(r rune) bool { return r >= '0' && r <= '9' || r == '_' })
	if raw == "" {
		return raw
	}
	if len(raw) == 1 {
		return strings.ToUpper(raw)
	}
	candidate := strings.ToUpper(raw[:1]) + strings.ToLower(raw[1:2])
	if _, ok := atomicMasses[candidate]; ok {
		return candidate
	}
	return strings.ToUpper(raw[:1])
}
