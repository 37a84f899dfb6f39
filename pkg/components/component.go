// Package components partitions the foreground of a binary image into
// 4-connected components and renders components back onto images.
//
// A component is stored as horizontal strokes grouped by row. Strokes are
// copied out of the image, so components stay valid after the image
// changes.
package components

import (
	"fmt"
	"image"
	"iter"
	"sort"
)

// Stroke is a horizontal run of foreground pixels within one row.
type Stroke struct {
	X      int
	Length int
}

// End returns the column just past the stroke.
func (s Stroke) End() int { return s.X + s.Length }

// Overlaps reports whether both strokes share at least one column.
func (s Stroke) Overlaps(o Stroke) bool {
	return s.X < o.End() && o.X < s.End()
}

// Component is a connected set of foreground pixels.
type Component struct {
	// top is the image row of rows[0].
	top  int
	rows [][]Stroke

	bounds image.Rectangle

	// power is the cached pixel count, -1 when stale.
	power int

	// index is the position in the labeler result, -1 once absorbed.
	index int
}

func newComponent(y int, s Stroke) *Component {
	return &Component{
		top:    y,
		rows:   [][]Stroke{{s}},
		bounds: image.Rect(s.X, y, s.End(), y+1),
		power:  s.Length,
		index:  -1,
	}
}

// Bounds returns the tight bounding rectangle of the strokes.
func (c *Component) Bounds() image.Rectangle { return c.bounds }

// Power returns the number of pixels in the component.
func (c *Component) Power() int {
	if c.power == -1 {
		n := 0
		for _, row := range c.rows {
			for _, s := range row {
				n += s.Length
			}
		}
		c.power = n
	}
	return c.power
}

// EnumStrokes yields every stroke with its image row, top to bottom and
// left to right within a row.
func (c *Component) EnumStrokes() iter.Seq2[int, Stroke] {
	return func(yield func(int, Stroke) bool) {
		for i, row := range c.rows {
			for _, s := range row {
				if !yield(c.top+i, s) {
					return
				}
			}
		}
	}
}

// StrokeCount returns the number of strokes.
func (c *Component) StrokeCount() int {
	n := 0
	for _, row := range c.rows {
		n += len(row)
	}
	return n
}

// growTo makes sure row y has a slot in c.rows.
func (c *Component) growTo(y int) {
	if y < c.top {
		grown := make([][]Stroke, c.top-y, c.top-y+len(c.rows))
		c.rows = append(grown, c.rows...)
		c.top = y
	}
	for y >= c.top+len(c.rows) {
		c.rows = append(c.rows, nil)
	}
}

// AddStroke adds s on row y. The caller guarantees s does not overlap a
// stroke already on that row.
func (c *Component) AddStroke(y int, s Stroke) {
	c.growTo(y)
	i := y - c.top
	row := c.rows[i]

	// strokes usually arrive left to right
	j := len(row)
	for j > 0 && row[j-1].X > s.X {
		j--
	}
	row = append(row, Stroke{})
	copy(row[j+1:], row[j:])
	row[j] = s
	c.rows[i] = row

	c.bounds = c.bounds.Union(image.Rect(s.X, y, s.End(), y+1))
	c.power = -1
}

// MergeWith moves every stroke of o into c. o must not be used afterwards.
// Adjacent strokes are kept as they are, not joined.
func (c *Component) MergeWith(o *Component) {
	if o == c || o == nil {
		return
	}
	c.growTo(o.top)
	c.growTo(o.top + len(o.rows) - 1)
	for i, row := range o.rows {
		if len(row) == 0 {
			continue
		}
		j := o.top + i - c.top
		c.rows[j] = mergeRows(c.rows[j], row)
	}

	c.bounds = c.bounds.Union(o.bounds)
	c.power = -1

	o.rows = nil
	o.power = 0
	o.bounds = image.Rectangle{}
}

// mergeRows merges two x-sorted rows into a new x-sorted row.
func mergeRows(a, b []Stroke) []Stroke {
	if len(a) == 0 {
		return append([]Stroke(nil), b...)
	}
	out := make([]Stroke, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].X <= b[j].X {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Contains reports whether pixel (x, y) belongs to the component.
func (c *Component) Contains(x, y int) bool {
	if !image.Pt(x, y).In(c.bounds) {
		return false
	}
	row := c.rows[y-c.top]
	i := sort.Search(len(row), func(i int) bool { return row[i].End() > x })
	return i < len(row) && row[i].X <= x
}

// Validate checks the structural invariants: strokes inside bounds, sorted
// and non-overlapping per row, bounds tight and the cached power consistent.
func (c *Component) Validate() error {
	if len(c.rows) == 0 {
		return fmt.Errorf("component has no rows")
	}
	if len(c.rows[0]) == 0 || len(c.rows[len(c.rows)-1]) == 0 {
		return fmt.Errorf("component rows [%d,%d) have an empty end row", c.top, c.top+len(c.rows))
	}

	var tight image.Rectangle
	n := 0
	for i, row := range c.rows {
		y := c.top + i
		for k, s := range row {
			if s.Length <= 0 {
				return fmt.Errorf("row %d: empty stroke at x=%d", y, s.X)
			}
			if k > 0 && row[k-1].End() > s.X {
				return fmt.Errorf("row %d: strokes at x=%d and x=%d unsorted or overlapping", y, row[k-1].X, s.X)
			}
			tight = tight.Union(image.Rect(s.X, y, s.End(), y+1))
			n += s.Length
		}
	}
	if tight != c.bounds {
		return fmt.Errorf("bounds %v, strokes span %v", c.bounds, tight)
	}
	if c.power != -1 && c.power != n {
		return fmt.Errorf("cached power %d, strokes hold %d", c.power, n)
	}
	return nil
}
