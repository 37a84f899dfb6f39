// Package morphology implements binary dilation, erosion, opening, closing
// and despeckling on packed 1 bit per pixel images.
//
// Every operation builds a scratch mask by combining shifted copies of the
// image, one per kernel offset, and only then folds the mask back into the
// image. Dilation ORs the mask into the image and erosion ANDs it, so both
// operations keep the original pixels as a bound: dilation never removes a
// pixel and erosion never adds one.
//
// Border policy: a dilation mask starts empty and source pixels shifted in
// from outside the image contribute nothing. An erosion mask starts full and
// is only ANDed where the shifted source lies inside the image, so the
// outside behaves as foreground and does not erode the border.
package morphology

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"binmorph/internal/logging"
	"binmorph/pkg/bitmap"
	"binmorph/pkg/structuring"
)

// minBandRows is the smallest row band handed to a worker.
const minBandRows = 32

type kind int

const (
	dilation kind = iota
	erosion
)

func (k kind) String() string {
	if k == dilation {
		return "dilate"
	}
	return "erode"
}

// Engine runs morphological operations.
//
// The zero value is ready to use and runs single threaded with the
// separable fast path enabled.
type Engine struct {
	// Workers is the number of goroutines used to apply one kernel offset.
	// Values below 2 disable parallelism.
	Workers int

	// DisableSeparable forces the full offset list even for rectangular
	// kernels. The result is identical; only the cost changes.
	DisableSeparable bool
}

var defaultEngine Engine

// Dilate grows the foreground of img by k, iterations times, in place.
func Dilate(img *bitmap.Image, k structuring.Element, iterations int) error {
	return defaultEngine.Dilate(img, k, iterations)
}

// Erode shrinks the foreground of img by k, iterations times, in place.
func Erode(img *bitmap.Image, k structuring.Element, iterations int) error {
	return defaultEngine.Erode(img, k, iterations)
}

// Open applies erosion followed by dilation, once per iteration.
func Open(img *bitmap.Image, k structuring.Element, iterations int) error {
	return defaultEngine.Open(img, k, iterations)
}

// Close applies dilation followed by erosion, once per iteration.
func Close(img *bitmap.Image, k structuring.Element, iterations int) error {
	return defaultEngine.Close(img, k, iterations)
}

func validate(img *bitmap.Image, k structuring.Element, iterations int) error {
	if err := bitmap.RequireBinary(img); err != nil {
		return err
	}
	if k == nil {
		return fmt.Errorf("%w: nil structuring element", bitmap.ErrInvalidArgument)
	}
	if iterations < 0 {
		return fmt.Errorf("%w: %d iterations", bitmap.ErrInvalidArgument, iterations)
	}
	return nil
}

// Dilate grows the foreground of img by k, iterations times, in place.
func (e *Engine) Dilate(img *bitmap.Image, k structuring.Element, iterations int) error {
	if err := validate(img, k, iterations); err != nil {
		return err
	}
	for i := 0; i < iterations; i++ {
		if err := e.once(img, k, dilation); err != nil {
			return err
		}
	}
	return nil
}

// Erode shrinks the foreground of img by k, iterations times, in place.
func (e *Engine) Erode(img *bitmap.Image, k structuring.Element, iterations int) error {
	if err := validate(img, k, iterations); err != nil {
		return err
	}
	for i := 0; i < iterations; i++ {
		if err := e.once(img, k, erosion); err != nil {
			return err
		}
	}
	return nil
}

// Open erodes then dilates img by k. Each iteration runs one erosion and one
// dilation, so three iterations are erode, dilate, erode, dilate, erode,
// dilate.
func (e *Engine) Open(img *bitmap.Image, k structuring.Element, iterations int) error {
	if err := validate(img, k, iterations); err != nil {
		return err
	}
	for i := 0; i < iterations; i++ {
		if err := e.once(img, k, erosion); err != nil {
			return err
		}
		if err := e.once(img, k, dilation); err != nil {
			return err
		}
	}
	return nil
}

// Close dilates then erodes img by k, interleaved per iteration like Open.
func (e *Engine) Close(img *bitmap.Image, k structuring.Element, iterations int) error {
	if err := validate(img, k, iterations); err != nil {
		return err
	}
	for i := 0; i < iterations; i++ {
		if err := e.once(img, k, dilation); err != nil {
			return err
		}
		if err := e.once(img, k, erosion); err != nil {
			return err
		}
	}
	return nil
}

// once applies a single dilation or erosion. Rectangles are processed as a
// column pass followed by a row pass, each folded into the image before the
// next starts.
func (e *Engine) once(img *bitmap.Image, k structuring.Element, op kind) error {
	if s, ok := k.(structuring.Separable); ok && !e.DisableSeparable {
		logging.Logger().Debug("morphology pass", "op", op, "separable", true,
			"vertical", len(s.VerticalElements()), "horizontal", len(s.HorizontalElements()))
		if err := e.apply(img, s.VerticalElements(), op); err != nil {
			return err
		}
		return e.apply(img, s.HorizontalElements(), op)
	}

	logging.Logger().Debug("morphology pass", "op", op, "separable", false, "offsets", len(k.Offsets()))
	return e.apply(img, k.Offsets(), op)
}

// apply builds the mask for offsets and folds it into img.
func (e *Engine) apply(img *bitmap.Image, offsets []image.Point, op kind) error {
	var (
		mask *bitmap.Image
		err  error
	)
	if op == dilation {
		mask, err = e.orMask(img, negate(offsets))
		if err != nil {
			return err
		}
		return img.Or(mask)
	}

	mask, err = e.andMask(img, offsets)
	if err != nil {
		return err
	}
	return img.And(mask)
}

// orMask returns a fresh image whose pixel p is set when src(p+n) is set for
// any neighbor offset n. Neighbors outside src count as background.
func (e *Engine) orMask(src *bitmap.Image, neighbors []image.Point) (*bitmap.Image, error) {
	mask := bitmap.MustNewBinary(src.Width, src.Height)
	for _, n := range neighbors {
		if err := e.shifted(mask, src, n, bitmap.OpOr); err != nil {
			return nil, err
		}
	}
	return mask, nil
}

// andMask returns a fresh image whose pixel p is set when src(p+n) is set
// for every neighbor offset n that lies inside src.
func (e *Engine) andMask(src *bitmap.Image, neighbors []image.Point) (*bitmap.Image, error) {
	mask := bitmap.MustNewBinary(src.Width, src.Height)
	mask.Fill(true)
	for _, n := range neighbors {
		if err := e.shifted(mask, src, n, bitmap.OpAnd); err != nil {
			return nil, err
		}
	}
	return mask, nil
}

// shifted combines src read at offset n into mask, splitting rows into
// bands when more than one worker is configured. It returns only after
// every band is done.
func (e *Engine) shifted(mask, src *bitmap.Image, n image.Point, o bitmap.Op) error {
	bands := e.Workers
	if limit := src.Height / minBandRows; bands > limit {
		bands = limit
	}
	if bands < 2 {
		return mask.CombineShifted(src, n.X, n.Y, o, 0, src.Height)
	}

	rows := (src.Height + bands - 1) / bands
	errs := make([]error, bands)
	var wg sync.WaitGroup
	for b := 0; b < bands; b++ {
		y0 := b * rows
		y1 := y0 + rows
		if y1 > src.Height {
			y1 = src.Height
		}
		wg.Add(1)
		go func(b, y0, y1 int) {
			defer wg.Done()
			errs[b] = mask.CombineShifted(src, n.X, n.Y, o, y0, y1)
		}(b, y0, y1)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// negate turns kernel offsets into neighbor offsets for dilation:
// p is set when some p-k is set.
func negate(offsets []image.Point) []image.Point {
	out := make([]image.Point, len(offsets))
	for i, k := range offsets {
		out[i] = image.Pt(-k.X, -k.Y)
	}
	return out
}
