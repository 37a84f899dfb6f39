// Package bitmap provides the packed pixel buffer used by the morphology,
// flood fill and connected component packages.
//
// An Image stores its pixels as a flat sequence of 64-bit words, row-major,
// with every row starting on a word boundary. Pixel x of row y occupies the
// bits starting at position y*Stride*64 + x*BitsPerPixel, least significant
// bit first within each word. Bits past the image width in the last word of
// a row are padding; operations never report them.
package bitmap

import (
	"errors"
	"fmt"
	"image"
)

const wordBits = 64

// Size limits enforced by New. MaxDimension bounds each side; MaxWords
// bounds the whole buffer (2 GiB).
const (
	MaxDimension = 1 << 24
	MaxWords     = 1 << 28
)

var (
	// ErrInvalidArgument is returned for nil images, kernels or components
	// and for non-positive dimensions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedDepth is returned when an algorithm that requires a
	// binary image is invoked on an image with more than one bit per pixel.
	ErrUnsupportedDepth = errors.New("unsupported depth")

	// ErrOutOfBounds is returned when a rectangular area exceeds the image.
	ErrOutOfBounds = errors.New("area out of bounds")

	// ErrRange is returned when a bit run passed to a primitive operation
	// extends past the image buffer.
	ErrRange = errors.New("bit range out of buffer")
)

// Image is a packed raster with 1, 8, 24 or 32 bits per pixel.
type Image struct {
	// Width and Height are the image dimensions in pixels.
	Width  int
	Height int

	// BitsPerPixel is the pixel depth.
	BitsPerPixel int

	// Stride is the number of words per row.
	Stride int

	// Bits holds Stride*Height words.
	Bits []uint64
}

// New creates a zeroed image with the given dimensions and depth.
//
// Parameters:
//   - width, height: image size in pixels, both must be positive
//   - bitsPerPixel: one of 1, 8, 24, 32
//
// Returns:
//   - the new image, or ErrInvalidArgument for bad dimensions or a buffer
//     above MaxWords and ErrUnsupportedDepth for an unknown depth
func New(width, height, bitsPerPixel int) (*Image, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrInvalidArgument, width, height)
	}
	switch bitsPerPixel {
	case 1, 8, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedDepth, bitsPerPixel)
	}

	// width*bitsPerPixel < 2^29 and stride*height < 2^47 cannot overflow
	stride := (width*bitsPerPixel + wordBits - 1) / wordBits
	if stride*height > MaxWords {
		return nil, fmt.Errorf("%w: image %dx%d at %d bpp exceeds %d words",
			ErrInvalidArgument, width, height, bitsPerPixel, MaxWords)
	}
	return &Image{
		Width:        width,
		Height:       height,
		BitsPerPixel: bitsPerPixel,
		Stride:       stride,
		Bits:         make([]uint64, stride*height),
	}, nil
}

// NewBinary creates a zeroed 1 bit per pixel image.
func NewBinary(width, height int) (*Image, error) {
	return New(width, height, 1)
}

// MustNewBinary is like NewBinary but panics on invalid dimensions.
// It is intended for tests and fixed-size scratch buffers.
func MustNewBinary(width, height int) *Image {
	img, err := NewBinary(width, height)
	if err != nil {
		panic(err)
	}
	return img
}

// Bounds returns the image rectangle anchored at the origin.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// RowBits returns the number of bits between the starts of two rows.
func (img *Image) RowBits() int { return img.Stride * wordBits }

// RowOffset returns the bit position of the first pixel of row y.
func (img *Image) RowOffset(y int) int { return y * img.Stride * wordBits }

// Row returns the words of row y. The slice aliases the image buffer.
func (img *Image) Row(y int) []uint64 {
	return img.Bits[y*img.Stride : (y+1)*img.Stride]
}

// IsBinary reports whether the image has one bit per pixel.
func (img *Image) IsBinary() bool { return img.BitsPerPixel == 1 }

// RequireBinary returns ErrInvalidArgument for a nil image and
// ErrUnsupportedDepth for images with more than one bit per pixel.
func RequireBinary(img *Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidArgument)
	}
	if !img.IsBinary() {
		return fmt.Errorf("%w: %d bits per pixel, binary image required", ErrUnsupportedDepth, img.BitsPerPixel)
	}
	return nil
}

// SameSize reports whether both images have identical dimensions.
func (img *Image) SameSize(other *Image) bool {
	return img.Width == other.Width && img.Height == other.Height
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	c := *img
	c.Bits = make([]uint64, len(img.Bits))
	copy(c.Bits, img.Bits)
	return &c
}

// CopyFrom overwrites the pixels of img with those of src.
// Both images must have identical dimensions and depth.
func (img *Image) CopyFrom(src *Image) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	if !img.SameSize(src) || img.BitsPerPixel != src.BitsPerPixel {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrInvalidArgument,
			img.Width, img.Height, img.BitsPerPixel, src.Width, src.Height, src.BitsPerPixel)
	}
	copy(img.Bits, src.Bits)
	return nil
}

// Get returns the pixel at (x, y) of a binary image.
// Coordinates outside the image read as background.
func (img *Image) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return false
	}
	pos := img.RowOffset(y) + x
	return img.Bits[pos>>6]&(1<<(pos&63)) != 0
}

// Set sets or clears the pixel at (x, y) of a binary image.
// Coordinates outside the image are ignored.
func (img *Image) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	pos := img.RowOffset(y) + x
	if on {
		img.Bits[pos>>6] |= 1 << (pos & 63)
	} else {
		img.Bits[pos>>6] &^= 1 << (pos & 63)
	}
}

// Pixel returns the raw packed value of the pixel at (x, y) for any depth.
func (img *Image) Pixel(x, y int) (uint32, error) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0, fmt.Errorf("%w: pixel (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, img.Width, img.Height)
	}
	pos := img.RowOffset(y) + x*img.BitsPerPixel
	return uint32(load(img.Bits, pos, img.BitsPerPixel)), nil
}

// SetPixel stores the low BitsPerPixel bits of value at (x, y).
func (img *Image) SetPixel(x, y int, value uint32) error {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return fmt.Errorf("%w: pixel (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, img.Width, img.Height)
	}
	pos := img.RowOffset(y) + x*img.BitsPerPixel
	store(img.Bits, pos, img.BitsPerPixel, uint64(value))
	return nil
}

// Fill sets every pixel of a binary image to on or off.
// Padding bits are written too.
func (img *Image) Fill(on bool) {
	var v uint64
	if on {
		v = ^uint64(0)
	}
	for i := range img.Bits {
		img.Bits[i] = v
	}
}

// Power returns the number of foreground pixels of a binary image.
func (img *Image) Power() int {
	n := 0
	for y := 0; y < img.Height; y++ {
		n += countOn(img.Bits, img.RowOffset(y), img.Width)
	}
	return n
}

// IsEmpty reports whether the binary image has no foreground pixels.
func (img *Image) IsEmpty() bool {
	for y := 0; y < img.Height; y++ {
		if scanOne(img.Bits, img.RowOffset(y), img.Width) >= 0 {
			return false
		}
	}
	return true
}

// Crop returns a new binary image holding the pixels of area r.
// The area must lie entirely within the image.
func (img *Image) Crop(r image.Rectangle) (*Image, error) {
	if err := RequireBinary(img); err != nil {
		return nil, err
	}
	if r.Empty() || !r.In(img.Bounds()) {
		return nil, fmt.Errorf("%w: %v not within %v", ErrOutOfBounds, r, img.Bounds())
	}

	dst := MustNewBinary(r.Dx(), r.Dy())
	for y := 0; y < dst.Height; y++ {
		combine(dst.Bits, dst.RowOffset(y), img.Bits, img.RowOffset(r.Min.Y+y)+r.Min.X, dst.Width, OpCopy)
	}
	return dst, nil
}

// Equal reports whether two binary images have the same size and pixels.
// Padding bits are ignored.
func (img *Image) Equal(other *Image) bool {
	if other == nil || !img.SameSize(other) || img.BitsPerPixel != other.BitsPerPixel {
		return false
	}
	n := img.Width * img.BitsPerPixel
	for y := 0; y < img.Height; y++ {
		pos := img.RowOffset(y)
		for done := 0; done < n; {
			k := n - done
			if k > wordBits {
				k = wordBits
			}
			if load(img.Bits, pos+done, k) != load(other.Bits, pos+done, k) {
				return false
			}
			done += k
		}
	}
	return true
}

// String renders a small binary image as rows of '#' and '.'.
func (img *Image) String() string {
	buf := make([]byte, 0, (img.Width+1)*img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.Get(x, y) {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
