// Package rasterio reads and writes binary rasters.
//
// Common image formats are decoded to grayscale and thresholded on load, and
// written as black foreground on white background on save. Files with the
// .pbr extension use the native packed format, which keeps the word layout of
// a bitmap.Image and supports every pixel depth.
package rasterio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"binmorph/pkg/bitmap"
)

// NativeExt is the file extension of the native packed format.
const NativeExt = ".pbr"

// Load reads the image at path as a binary raster.
//
// Parameters:
//   - path: image file; the format is taken from the extension for .pbr
//     files and sniffed from the content otherwise
//   - threshold: luminance below which a pixel is foreground
//   - invert: treat light pixels as foreground instead
//
// Returns:
//   - the raster, or an error wrapping the decode failure
func Load(path string, threshold uint8, invert bool) (*bitmap.Image, error) {
	if isNative(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening raster: %w", err)
		}
		defer f.Close()

		img, err := Decode(f)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", path, err)
		}
		return img, nil
	}

	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error loading image %s: %w", path, err)
	}
	img, err := bitmap.FromImage(imaging.Grayscale(src), threshold, invert)
	if err != nil {
		return nil, fmt.Errorf("error thresholding %s: %w", path, err)
	}
	return img, nil
}

// Save writes img to path in the format named by the extension. BMP and TIFF
// go through golang.org/x/image, TIFF with deflate compression; PNG, JPEG and
// GIF go through imaging. Only the native format accepts non-binary images.
func Save(path string, img *bitmap.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", bitmap.ErrInvalidArgument)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == NativeExt {
		return writeFile(path, func(f *os.File) error { return Encode(f, img) })
	}

	if err := bitmap.RequireBinary(img); err != nil {
		return err
	}
	gray := img.ToImage()

	switch ext {
	case ".bmp":
		return writeFile(path, func(f *os.File) error { return bmp.Encode(f, gray) })
	case ".tif", ".tiff":
		return writeFile(path, func(f *os.File) error {
			return tiff.Encode(f, gray, &tiff.Options{Compression: tiff.Deflate})
		})
	default:
		if err := imaging.Save(gray, path); err != nil {
			return fmt.Errorf("error saving image %s: %w", path, err)
		}
		return nil
	}
}

func isNative(path string) bool {
	return strings.EqualFold(filepath.Ext(path), NativeExt)
}

func writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("error encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", path, err)
	}
	return nil
}
