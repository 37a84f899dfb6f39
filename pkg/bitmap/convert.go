package bitmap

import (
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/mat"
)

// FromImage thresholds img into a binary image. A pixel becomes foreground
// when its luminance is below threshold, or at or above it when invert is set.
func FromImage(img image.Image, threshold uint8, invert bool) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil source image", ErrInvalidArgument)
	}
	b := img.Bounds()
	dst, err := NewBinary(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			dark := g.Y < threshold
			if dark != invert {
				dst.Set(x, y, true)
			}
		}
	}
	return dst, nil
}

// ToImage renders a binary image as black foreground on white background.
func (img *Image) ToImage() *image.Gray {
	out := image.NewGray(img.Bounds())
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.Get(x, y) {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// FromDense builds a binary image from a matrix; rows map to image rows and
// any non-zero element becomes foreground.
func FromDense(m *mat.Dense) (*Image, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidArgument)
	}
	rows, cols := m.Dims()
	dst, err := NewBinary(cols, rows)
	if err != nil {
		return nil, err
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if m.At(y, x) != 0 {
				dst.Set(x, y, true)
			}
		}
	}
	return dst, nil
}

// ToDense returns the binary image as a Height x Width matrix of 0 and 1.
func (img *Image) ToDense() *mat.Dense {
	m := mat.NewDense(img.Height, img.Width, nil)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.Get(x, y) {
				m.Set(y, x, 1)
			}
		}
	}
	return m
}

// Parse builds a binary image from rows of '#' (foreground) and '.'
// characters, the same layout String produces. All rows must have equal
// length.
func Parse(rows ...string) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty picture", ErrInvalidArgument)
	}
	img, err := NewBinary(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != img.Width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidArgument, y, len(row), img.Width)
		}
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case '#', '1', 'X':
				img.Set(x, y, true)
			case '.', '0', ' ':
			default:
				return nil, fmt.Errorf("%w: unexpected %q at (%d,%d)", ErrInvalidArgument, row[x], x, y)
			}
		}
	}
	return img, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(rows ...string) *Image {
	img, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return img
}
