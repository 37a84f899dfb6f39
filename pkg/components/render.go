package components

import (
	"fmt"
	"sort"

	"binmorph/pkg/bitmap"
)

func checkTarget(img *bitmap.Image, c *Component) error {
	if err := bitmap.RequireBinary(img); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: nil component", bitmap.ErrInvalidArgument)
	}
	if !c.Bounds().In(img.Bounds()) {
		return fmt.Errorf("%w: component %v outside image %v", bitmap.ErrOutOfBounds, c.Bounds(), img.Bounds())
	}
	return nil
}

func draw(img *bitmap.Image, c *Component, dx, dy int, on bool) error {
	for y, s := range c.EnumStrokes() {
		if err := img.SetRun(y+dy, s.X+dx, s.Length, on); err != nil {
			return err
		}
	}
	return nil
}

// Add sets the pixels of c on img.
func Add(img *bitmap.Image, c *Component) error {
	if err := checkTarget(img, c); err != nil {
		return err
	}
	return draw(img, c, 0, 0, true)
}

// Remove clears the pixels of c on img.
func Remove(img *bitmap.Image, c *Component) error {
	if err := checkTarget(img, c); err != nil {
		return err
	}
	return draw(img, c, 0, 0, false)
}

// Crop returns a new image of the size of c's bounds holding the pixels of
// img that belong to c.
func Crop(img *bitmap.Image, c *Component) (*bitmap.Image, error) {
	if err := checkTarget(img, c); err != nil {
		return nil, err
	}
	b := c.Bounds()
	out, err := img.Crop(b)
	if err != nil {
		return nil, err
	}
	shape, err := c.Image()
	if err != nil {
		return nil, err
	}
	if err := out.And(shape); err != nil {
		return nil, err
	}
	return out, nil
}

// Image renders c alone on an image of the size of its bounds.
func (c *Component) Image() (*bitmap.Image, error) {
	b := c.Bounds()
	out, err := bitmap.NewBinary(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	if err := draw(out, c, -b.Min.X, -b.Min.Y, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Render draws every component onto a new width x height image.
func Render(set []*Component, width, height int) (*bitmap.Image, error) {
	img, err := bitmap.NewBinary(width, height)
	if err != nil {
		return nil, err
	}
	for _, c := range set {
		if err := Add(img, c); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// FilterByPower returns the components whose power lies in
// [minPower, maxPower]. A maxPower of zero or less means no upper limit.
func FilterByPower(set []*Component, minPower, maxPower int) []*Component {
	out := make([]*Component, 0, len(set))
	for _, c := range set {
		p := c.Power()
		if p < minPower || (maxPower > 0 && p > maxPower) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sorted returns a copy of set ordered by the top, then left edge of the
// bounds.
func Sorted(set []*Component) []*Component {
	out := append([]*Component(nil), set...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Bounds().Min, out[j].Bounds().Min
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}
