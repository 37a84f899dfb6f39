package bitmap

import (
	"fmt"
)

func requireSameBinary(dst, src *Image) error {
	if err := RequireBinary(dst); err != nil {
		return err
	}
	if err := RequireBinary(src); err != nil {
		return err
	}
	if !dst.SameSize(src) {
		return fmt.Errorf("%w: size %dx%d vs %dx%d", ErrInvalidArgument, dst.Width, dst.Height, src.Width, src.Height)
	}
	return nil
}

// Combine applies op between every pixel of src and the pixel of img at the
// same position. Both images must be binary and of the same size.
func (img *Image) Combine(src *Image, o Op) error {
	if err := requireSameBinary(img, src); err != nil {
		return err
	}
	for y := 0; y < img.Height; y++ {
		combine(img.Bits, img.RowOffset(y), src.Bits, src.RowOffset(y), img.Width, o)
	}
	return nil
}

// And keeps only the pixels also set in src.
func (img *Image) And(src *Image) error { return img.Combine(src, OpAnd) }

// Or adds the pixels set in src.
func (img *Image) Or(src *Image) error { return img.Combine(src, OpOr) }

// Xor flips the pixels set in src.
func (img *Image) Xor(src *Image) error { return img.Combine(src, OpXor) }

// AndNot removes the pixels set in src.
func (img *Image) AndNot(src *Image) error { return img.Combine(src, OpAndNot) }

// Not inverts every pixel of a binary image.
func (img *Image) Not() error {
	if err := RequireBinary(img); err != nil {
		return err
	}
	for y := 0; y < img.Height; y++ {
		fill(img.Bits, img.RowOffset(y), img.Width, false, true)
	}
	return nil
}

// CombineShifted applies op between img and src read at an offset:
//
//	img(x, y) = img(x, y) <op> src(x+dx, y+dy)
//
// Only pixels whose source position lies inside src are touched; the rest
// of img keeps its value. This lets an OR accumulator treat the outside as
// background and an AND accumulator treat it as foreground.
//
// Rows are limited to [y0, y1) so callers can split the work into bands.
func (img *Image) CombineShifted(src *Image, dx, dy int, o Op, y0, y1 int) error {
	if err := requireSameBinary(img, src); err != nil {
		return err
	}
	if y0 < 0 || y1 > img.Height || y0 > y1 {
		return fmt.Errorf("%w: rows [%d,%d) of %d", ErrOutOfBounds, y0, y1, img.Height)
	}
	img.combineShifted(src, dx, dy, o, y0, y1)
	return nil
}

func (img *Image) combineShifted(src *Image, dx, dy int, o Op, y0, y1 int) {
	// destination columns whose source column x+dx is inside [0, Width)
	x0, x1 := 0, img.Width
	if dx < 0 {
		x0 = -dx
	} else {
		x1 = img.Width - dx
	}
	count := x1 - x0
	if count <= 0 {
		return
	}

	// source rows y+dy must be inside [0, Height)
	if y0 < -dy {
		y0 = -dy
	}
	if y1 > img.Height-dy {
		y1 = img.Height - dy
	}
	for y := y0; y < y1; y++ {
		combine(img.Bits, img.RowOffset(y)+x0, src.Bits, src.RowOffset(y+dy)+x0+dx, count, o)
	}
}

// NextRun finds the first run of foreground pixels in row y starting at or
// after column x. It returns the half-open column range [start, end), or
// start == -1 when the rest of the row is background.
func (img *Image) NextRun(y, x int) (start, end int) {
	if y < 0 || y >= img.Height || x >= img.Width {
		return -1, -1
	}
	if x < 0 {
		x = 0
	}
	row := img.RowOffset(y)
	s := scanOne(img.Bits, row+x, img.Width-x)
	if s < 0 {
		return -1, -1
	}
	start = s - row
	e := scanZero(img.Bits, s, img.Width-start)
	if e < 0 {
		return start, img.Width
	}
	return start, e - row
}

// SetRun sets or clears length pixels of row y starting at column x.
func (img *Image) SetRun(y, x, length int, on bool) error {
	if err := RequireBinary(img); err != nil {
		return err
	}
	if y < 0 || y >= img.Height || x < 0 || length < 0 || x+length > img.Width {
		return fmt.Errorf("%w: run (%d,%d)+%d outside %dx%d", ErrOutOfBounds, x, y, length, img.Width, img.Height)
	}
	fill(img.Bits, img.RowOffset(y)+x, length, on, false)
	return nil
}

// RowPower returns the number of foreground pixels in row y.
func (img *Image) RowPower(y int) int {
	if y < 0 || y >= img.Height {
		return 0
	}
	return countOn(img.Bits, img.RowOffset(y), img.Width)
}
