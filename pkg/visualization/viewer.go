package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"binmorph/pkg/bitmap"
	"binmorph/pkg/components"
)

// Viewer renders a labeled component set for inspection.
type Viewer struct {
	// set holds the components in display order
	set []*components.Component

	// dimensions of the labeled image
	width  int
	height int

	// scale is the integer zoom factor applied to rendered maps
	scale int
}

// NewViewer creates a viewer over set, a labeling of a width x height image.
// Components are shown in top-to-bottom, left-to-right order.
func NewViewer(set []*components.Component, width, height int) *Viewer {
	return &Viewer{
		set:    components.Sorted(set),
		width:  width,
		height: height,
		scale:  1,
	}
}

// SetScale sets the zoom factor of LabelMap. Values below 1 are ignored.
func (v *Viewer) SetScale(scale int) {
	if scale >= 1 {
		v.scale = scale
	}
}

// Len returns the number of components shown.
func (v *Viewer) Len() int { return len(v.set) }

// LabelColor returns the display color of component i. Hues follow the
// golden angle so that neighbors in the order get distinct colors.
func LabelColor(i int) color.NRGBA {
	h := math.Mod(float64(i)*137.508, 360)
	return hsv(h, 0.65, 0.9)
}

func hsv(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

// LabelMap paints every component in its label color on a white
// background, zoomed by the viewer scale with nearest neighbor sampling.
func (v *Viewer) LabelMap() (*image.NRGBA, error) {
	if v.width <= 0 || v.height <= 0 {
		return nil, fmt.Errorf("invalid label map size %dx%d", v.width, v.height)
	}

	img := imaging.New(v.width, v.height, color.White)
	for i, c := range v.set {
		if !c.Bounds().In(img.Bounds()) {
			return nil, fmt.Errorf("component %d at %v exceeds %dx%d", i, c.Bounds(), v.width, v.height)
		}
		col := LabelColor(i)
		for y, s := range c.EnumStrokes() {
			for x := s.X; x < s.End(); x++ {
				img.SetNRGBA(x, y, col)
			}
		}
	}

	if v.scale > 1 {
		img = imaging.Resize(img, v.width*v.scale, v.height*v.scale, imaging.NearestNeighbor)
	}
	return img, nil
}

// ExtractComponent returns the pixels of component i taken from src,
// cropped to the component bounds.
func (v *Viewer) ExtractComponent(src *bitmap.Image, i int) (image.Image, error) {
	if i < 0 || i >= len(v.set) {
		return nil, fmt.Errorf("component index %d out of range [0,%d)", i, len(v.set))
	}
	crop, err := components.Crop(src, v.set[i])
	if err != nil {
		return nil, err
	}
	return crop.ToImage(), nil
}

// SaveImage saves a rendered image; the format follows the file extension.
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	return imaging.Save(img, filename, imaging.JPEGQuality(90))
}

// SaveComponentSequence writes every component of src as its own image in
// outputDir and returns the file names in display order.
func (v *Viewer) SaveComponentSequence(src *bitmap.Image, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	files := make([]string, 0, len(v.set))
	for i := range v.set {
		img, err := v.ExtractComponent(src, i)
		if err != nil {
			return files, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("component_%04d.png", i))
		if err := v.SaveImage(img, filename); err != nil {
			return files, err
		}
		files = append(files, filename)
	}

	return files, nil
}
