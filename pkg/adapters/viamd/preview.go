package viamd

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/probaah/probaah/pkg/structure"
)

// Preview rendering: small orthographic projections of the structure along
// each axis, written as PNGs. These are quick-assessment images, not
// publication graphics; the external visualizer covers real rendering.

const previewSize = 512

var elementColors = map[string]color.RGBA{
	"H": {R: 0xee, G: 0xee, B: 0xee, A: 0xff},
	"C": {R: 0x44, G: 0x44, B: 0x44, A: 0xff},
	"N": {R: 0x30, G: 0x60, B: 0xf0, A: 0xff},
	"O": {R: 0xe0, G: 0x20, B: 0x20, A: 0xff},
	"S": {R: 0xe0, G: 0xc0, B: 0x20, A: 0xff},
}

// RenderPreviews writes front/side/top projections into dir and returns the
// image paths.
func RenderPreviews(s *structure.MolecularStructure, dir string) ([]string, error) {
	if s == nil || s.Len() == 0 || dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	// View axes: drop one coordinate per view.
	views := []struct {
		name string
		ax   int // horizontal coordinate index
		ay   int // vertical coordinate index
	}{
		{"front", 0, 2},
		{"side", 1, 2},
		{"top", 0, 1},
	}

	box := s.BoundingBox()
	paths := make([]string, 0, len(views))
	for _, view := range views {
		img := render(s, box, view.ax, view.ay)
		path := filepath.Join(dir, fmt.Sprintf("preview_%s.png", view.name))
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return paths, err
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func render(s *structure.MolecularStructure, box structure.Box, ax, ay int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, previewSize, previewSize))
	for y := 0; y < previewSize; y++ {
		for x := 0; x < previewSize; x++ {
			img.Set(x, y, color.White)
		}
	}

	spanX := box.Max[ax] - box.Min[ax]
	spanY := box.Max[ay] - box.Min[ay]
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	scale := float64(previewSize-20) / max(spanX, spanY)

	for _, a := range s.Atoms {
		c := [3]float64{a.X, a.Y, a.Z}
		px := 10 + int((c[ax]-box.Min[ax])*scale)
		py := previewSize - 10 - int((c[ay]-box.Min[ay])*scale)
		col, ok := elementColors[a.Element]
		if !ok {
			col = color.RGBA{R: 0x90, G: 0x50, B: 0xc0, A: 0xff}
		}
		radius := int(structure.CovalentRadius(a.Element) * scale / 2)
		if radius < 1 {
			radius = 1
		}
		drawDisc(img, px, py, radius, col)
	}
	return img
}

func drawDisc(img *image.RGBA, cx, cy, r int, col color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(img.Rect) {
					img.Set(x, y, col)
				}
			}
		}
	}
}
