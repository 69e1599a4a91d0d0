package structure

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteXYZ serializes the structure in XYZ format, preserving atom order.
func (s *MolecularStructure) WriteXYZ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(s.Atoms))
	comment := s.Comment
	if comment == "" {
		comment = "written by probaah"
	}
	fmt.Fprintf(bw, "%s\n", comment)
	for _, a := range s.Atoms {
		fmt.Fprintf(bw, "%s %.6f %.6f %.6f\n", a.Element, a.X, a.Y, a.Z)
	}
	return bw.Flush()
}

// SaveXYZ writes the structure to a file in XYZ format.
func (s *MolecularStructure) SaveXYZ(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := s.WriteXYZ(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
