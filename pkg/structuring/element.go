// Package structuring describes the kernel shapes used by morphological
// dilation and erosion. An element is a finite set of integer offsets
// relative to an anchor; it knows nothing about the images it is applied to.
package structuring

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidElement is returned for non-positive sizes, anchors outside the
// shape and empty point lists.
var ErrInvalidElement = errors.New("invalid structuring element")

// Element is a kernel shape. Offsets are relative to the anchor, so the
// anchor itself is the offset (0, 0).
type Element interface {
	// Offsets returns the kernel points. The returned slice must not be
	// modified.
	Offsets() []image.Point

	// Bounds returns the smallest rectangle containing every offset.
	Bounds() image.Rectangle
}

// Separable is implemented by elements that decompose into a vertical run
// followed by a horizontal run with an identical result.
type Separable interface {
	Element

	// VerticalElements returns the offsets (0, dy) of the column run.
	VerticalElements() []image.Point

	// HorizontalElements returns the offsets (dx, 0) of the row run.
	HorizontalElements() []image.Point
}

// Shape is an arbitrary set of offsets.
type Shape struct {
	offsets []image.Point
	bounds  image.Rectangle
}

// Points creates an element from explicit offsets. Duplicates are dropped
// and the first occurrence order is kept.
func Points(offsets ...image.Point) (*Shape, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidElement)
	}

	seen := make(map[image.Point]bool, len(offsets))
	s := &Shape{offsets: make([]image.Point, 0, len(offsets))}
	for _, p := range offsets {
		if seen[p] {
			continue
		}
		seen[p] = true
		s.offsets = append(s.offsets, p)
	}
	s.bounds = boundsOf(s.offsets)
	return s, nil
}

// Offsets implements Element.
func (s *Shape) Offsets() []image.Point { return s.offsets }

// Bounds implements Element.
func (s *Shape) Bounds() image.Rectangle { return s.bounds }

// Cross creates a plus-shaped element: a horizontal bar of the given width
// and a vertical bar of the given height meeting at the center.
func Cross(width, height int) (*Shape, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: cross %dx%d", ErrInvalidElement, width, height)
	}
	ax, ay := width/2, height/2

	offsets := make([]image.Point, 0, width+height-1)
	for x := 0; x < width; x++ {
		offsets = append(offsets, image.Pt(x-ax, 0))
	}
	for y := 0; y < height; y++ {
		if y == ay {
			continue
		}
		offsets = append(offsets, image.Pt(0, y-ay))
	}
	return &Shape{offsets: offsets, bounds: boundsOf(offsets)}, nil
}

// Rect is an axis-aligned rectangular element.
type Rect struct {
	width, height int
	anchor        image.Point
	offsets       []image.Point
}

// Rectangle creates a width x height element whose anchor is the given
// position inside the rectangle, (0, 0) being its top-left cell.
func Rectangle(width, height int, anchor image.Point) (*Rect, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: rectangle %dx%d", ErrInvalidElement, width, height)
	}
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= width || anchor.Y >= height {
		return nil, fmt.Errorf("%w: anchor %v outside %dx%d", ErrInvalidElement, anchor, width, height)
	}

	r := &Rect{width: width, height: height, anchor: anchor}
	r.offsets = make([]image.Point, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r.offsets = append(r.offsets, image.Pt(x-anchor.X, y-anchor.Y))
		}
	}
	return r, nil
}

// Brick creates a width x height rectangle anchored at its center.
func Brick(width, height int) (*Rect, error) {
	return Rectangle(width, height, image.Pt(width/2, height/2))
}

// Square creates an n x n rectangle anchored at its center.
func Square(n int) (*Rect, error) {
	return Brick(n, n)
}

// Size returns the rectangle dimensions.
func (r *Rect) Size() (width, height int) { return r.width, r.height }

// Anchor returns the anchor position inside the rectangle.
func (r *Rect) Anchor() image.Point { return r.anchor }

// Offsets implements Element.
func (r *Rect) Offsets() []image.Point { return r.offsets }

// Bounds implements Element.
func (r *Rect) Bounds() image.Rectangle {
	return image.Rect(-r.anchor.X, -r.anchor.Y, r.width-r.anchor.X, r.height-r.anchor.Y)
}

// VerticalElements implements Separable.
func (r *Rect) VerticalElements() []image.Point {
	offsets := make([]image.Point, r.height)
	for y := range offsets {
		offsets[y] = image.Pt(0, y-r.anchor.Y)
	}
	return offsets
}

// HorizontalElements implements Separable.
func (r *Rect) HorizontalElements() []image.Point {
	offsets := make([]image.Point, r.width)
	for x := range offsets {
		offsets[x] = image.Pt(x-r.anchor.X, 0)
	}
	return offsets
}

func boundsOf(offsets []image.Point) image.Rectangle {
	b := image.Rectangle{Min: offsets[0], Max: offsets[0].Add(image.Pt(1, 1))}
	for _, p := range offsets[1:] {
		b = b.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return b
}

// Parse builds an element from a shape name and dimensions, as used in
// configuration files. Recognized shapes are "square" (width only),
// "rectangle", "brick" and "cross". A nil anchor centers rectangles.
func Parse(shape string, width, height int, anchor *image.Point) (Element, error) {
	var (
		e   Element
		err error
	)
	switch shape {
	case "square":
		height = width
		fallthrough
	case "rectangle":
		var r *Rect
		if anchor != nil {
			r, err = Rectangle(width, height, *anchor)
		} else {
			r, err = Brick(width, height)
		}
		e = r
	case "brick":
		var r *Rect
		r, err = Brick(width, height)
		e = r
	case "cross":
		var c *Shape
		c, err = Cross(width, height)
		e = c
	default:
		err = fmt.Errorf("%w: unknown shape %q", ErrInvalidElement, shape)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
