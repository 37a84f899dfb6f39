package components

import (
	"binmorph/internal/logging"
	"binmorph/pkg/bitmap"
)

// labeled is a stroke tagged with its current owner.
type labeled struct {
	Stroke
	owner *Component
}

// labeler holds the state of one Find call.
type labeler struct {
	last, cur []labeled
	result    []*Component
}

// Find returns the 4-connected components of the foreground of img in a
// single top-to-bottom pass. Two strokes on consecutive rows belong to the
// same component when they share a column.
//
// The order of the returned components is not part of the contract; use
// Sorted for a stable order.
func Find(img *bitmap.Image) ([]*Component, error) {
	if err := bitmap.RequireBinary(img); err != nil {
		return nil, err
	}

	l := &labeler{}
	for y := 0; y < img.Height; y++ {
		l.scanRow(img, y)
		l.last, l.cur = l.cur, l.last[:0]
	}

	logging.Logger().Debug("connected components", "width", img.Width, "height", img.Height, "components", len(l.result))
	return l.result, nil
}

func (l *labeler) scanRow(img *bitmap.Image, y int) {
	lastIndex := 0
	for x := 0; x < img.Width; {
		start, end := img.NextRun(y, x)
		if start < 0 {
			break
		}
		s := Stroke{X: start, Length: end - start}

		// strokes of the previous row ending before s can not touch s or
		// any later stroke of this row
		for lastIndex < len(l.last) && l.last[lastIndex].End() <= s.X {
			lastIndex++
		}

		var owner *Component
		for i := lastIndex; i < len(l.last) && l.last[i].X < s.End(); i++ {
			c := l.last[i].owner
			switch {
			case owner == nil:
				owner = c
				owner.AddStroke(y, s)
			case c != owner:
				l.merge(owner, c)
			}
		}

		if owner == nil {
			owner = newComponent(y, s)
			l.add(owner)
		}
		l.cur = append(l.cur, labeled{Stroke: s, owner: owner})
		x = end
	}
}

func (l *labeler) add(c *Component) {
	c.index = len(l.result)
	l.result = append(l.result, c)
}

func (l *labeler) remove(c *Component) {
	i := c.index
	n := len(l.result) - 1
	l.result[i] = l.result[n]
	l.result[i].index = i
	l.result[n] = nil
	l.result = l.result[:n]
	c.index = -1
}

// merge absorbs c into owner and retags the strokes of both row buffers.
func (l *labeler) merge(owner, c *Component) {
	bounds := c.Bounds()
	owner.MergeWith(c)
	l.remove(c)
	relabel(l.last, c, owner, bounds.Min.X, bounds.Max.X)
	relabel(l.cur, c, owner, bounds.Min.X, bounds.Max.X)
}

// relabel retags strokes owned by from. Strokes are x-sorted and every
// stroke of from lies within columns [minX, maxX), so the scan skips what
// ends before minX and stops at the first stroke starting at maxX.
func relabel(strokes []labeled, from, to *Component, minX, maxX int) {
	for i := range strokes {
		s := &strokes[i]
		if s.End() <= minX {
			continue
		}
		if s.X >= maxX {
			return
		}
		if s.owner == from {
			s.owner = to
		}
	}
}
