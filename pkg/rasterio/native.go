package rasterio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"binmorph/pkg/bitmap"
)

// ErrFormat is returned when a native raster stream is malformed.
var ErrFormat = errors.New("malformed raster stream")

var magic = [4]byte{'P', 'B', 'R', '1'}

// header precedes the compressed words. All fields are little endian.
type header struct {
	Magic        [4]byte
	Width        uint32
	Height       uint32
	BitsPerPixel uint32
}

// Encode writes img in the native format: a fixed header followed by the
// zstd-compressed little-endian words of the buffer, padding included.
func Encode(w io.Writer, img *bitmap.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", bitmap.ErrInvalidArgument)
	}
	h := header{
		Magic:        magic,
		Width:        uint32(img.Width),
		Height:       uint32(img.Height),
		BitsPerPixel: uint32(img.BitsPerPixel),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := binary.Write(enc, binary.LittleEndian, img.Bits); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a native raster written by Encode. Headers declaring sizes
// beyond bitmap.MaxDimension or bitmap.MaxWords return ErrFormat without
// allocating.
func Decode(r io.Reader) (*bitmap.Image, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, h.Magic[:])
	}

	if h.Width > bitmap.MaxDimension || h.Height > bitmap.MaxDimension {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrFormat, h.Width, h.Height)
	}
	img, err := bitmap.New(int(h.Width), int(h.Height), int(h.BitsPerPixel))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	if err := binary.Read(dec, binary.LittleEndian, img.Bits); err != nil {
		return nil, fmt.Errorf("%w: pixel data: %v", ErrFormat, err)
	}
	return img, nil
}
