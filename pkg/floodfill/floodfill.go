// Package floodfill grows the foreground of a seed image inside a mask.
package floodfill

import (
	"fmt"
	"math"

	"binmorph/internal/logging"
	"binmorph/pkg/bitmap"
)

// span is an inclusive row range; it is empty when top > bottom.
type span struct{ top, bottom int }

var emptySpan = span{top: math.MaxInt, bottom: -1}

func (s span) empty() bool { return s.top > s.bottom }

func (s span) add(y int) span {
	if y < s.top {
		s.top = y
	}
	if y > s.bottom {
		s.bottom = y
	}
	return s
}

func (s span) union(o span) span {
	if o.empty() {
		return s
	}
	return s.add(o.top).add(o.bottom)
}

func (s span) contains(y int) bool { return y >= s.top && y <= s.bottom }

// filler holds the state of one Fill call.
type filler struct {
	work    *bitmap.Image // seed pixels inside the mask, grown in place
	mask    *bitmap.Image
	scratch *bitmap.Image // one row
}

// Fill adds to seed every mask pixel that is 4-connected, through mask
// pixels, to a seed pixel lying inside the mask. Seed pixels outside the
// mask are left as they are but do not spread. The mask must be binary and
// at least as large as seed.
//
// Fill alternates top-to-bottom and bottom-to-top passes over the rows that
// may still change, until a pass changes nothing. Each changed row is closed
// over its whole mask runs at once; the fixed point is the same one reached
// by repeated one-pixel left, right, up and down shifts masked by mask.
func Fill(seed, mask *bitmap.Image) error {
	if err := bitmap.RequireBinary(seed); err != nil {
		return err
	}
	if err := bitmap.RequireBinary(mask); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if mask.Width < seed.Width || mask.Height < seed.Height {
		return fmt.Errorf("%w: mask %dx%d smaller than seed %dx%d", bitmap.ErrOutOfBounds,
			mask.Width, mask.Height, seed.Width, seed.Height)
	}

	f := &filler{
		work:    bitmap.MustNewBinary(seed.Width, seed.Height),
		mask:    mask,
		scratch: bitmap.MustNewBinary(seed.Width, 1),
	}

	pending, err := f.start(seed)
	if err != nil {
		return err
	}
	if pending.empty() {
		return nil
	}

	down, up := pending, pending
	passes := 0
	for !down.empty() || !up.empty() {
		changed, err := f.forward(down)
		if err != nil {
			return err
		}
		up, down = up.union(changed), emptySpan
		passes++

		changed, err = f.backward(up)
		if err != nil {
			return err
		}
		down, up = down.union(changed), emptySpan
		passes++
	}

	logging.Logger().Debug("flood fill", "passes", passes, "filled", f.work.Power())
	return seed.Or(f.work)
}

// start copies the seed pixels inside the mask into the work image, closes
// every row horizontally and returns the rows holding pixels.
func (f *filler) start(seed *bitmap.Image) (span, error) {
	rows := emptySpan
	w := seed.Width
	for y := 0; y < seed.Height; y++ {
		pos := f.work.RowOffset(y)
		if err := f.work.CopyBits(pos, seed, seed.RowOffset(y), w); err != nil {
			return rows, err
		}
		if err := f.work.AndBits(pos, f.mask, f.mask.RowOffset(y), w); err != nil {
			return rows, err
		}
		if f.work.RowPower(y) == 0 {
			continue
		}
		if err := f.closeRow(y); err != nil {
			return rows, err
		}
		rows = rows.add(y)
	}
	return rows, nil
}

// forward propagates downward starting below the rows in src. It stops once
// it leaves src and the previous row did not change.
func (f *filler) forward(src span) (span, error) {
	changed := emptySpan
	if src.empty() {
		return changed, nil
	}
	for y := src.top + 1; y < f.work.Height; y++ {
		if !src.contains(y-1) && changed.bottom != y-1 {
			break
		}
		grew, err := f.propagate(y, y-1)
		if err != nil {
			return changed, err
		}
		if grew {
			changed = changed.add(y)
		}
	}
	return changed, nil
}

// backward is forward mirrored: it propagates upward from the rows in src.
func (f *filler) backward(src span) (span, error) {
	changed := emptySpan
	if src.empty() {
		return changed, nil
	}
	for y := src.bottom - 1; y >= 0; y-- {
		if !src.contains(y+1) && changed.top != y+1 {
			break
		}
		grew, err := f.propagate(y, y+1)
		if err != nil {
			return changed, err
		}
		if grew {
			changed = changed.add(y)
		}
	}
	return changed, nil
}

// propagate ORs the pixels of row from that sit above or below mask pixels
// of row y into row y, then closes row y. It reports whether row y grew.
func (f *filler) propagate(y, from int) (bool, error) {
	w := f.work.Width
	pos := f.work.RowOffset(y)
	before := f.work.RowPower(y)

	if err := f.scratch.CopyBits(0, f.work, f.work.RowOffset(from), w); err != nil {
		return false, err
	}
	if err := f.scratch.AndBits(0, f.mask, f.mask.RowOffset(y), w); err != nil {
		return false, err
	}
	if err := f.work.OrBits(pos, f.scratch, 0, w); err != nil {
		return false, err
	}
	if f.work.RowPower(y) == before {
		return false, nil
	}
	return true, f.closeRow(y)
}

// closeRow completes every mask run of row y that holds a work pixel, so a
// row never needs more than one visit per change.
func (f *filler) closeRow(y int) error {
	w := f.work.Width
	pos := f.work.RowOffset(y)
	for x := 0; x < w; {
		s, e := f.mask.NextRun(y, x)
		if s < 0 || s >= w {
			break
		}
		if e > w {
			e = w
		}
		n, err := f.work.CountOn(pos+s, e-s)
		if err != nil {
			return err
		}
		if n > 0 && n < e-s {
			if err := f.work.SetRun(y, s, e-s, true); err != nil {
				return err
			}
		}
		x = e
	}
	return nil
}
