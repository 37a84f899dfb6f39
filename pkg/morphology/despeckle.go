package morphology

import (
	"image"

	"binmorph/internal/logging"
	"binmorph/pkg/bitmap"
)

// Neighbor offsets of the 3x3 ring around a pixel.
var (
	north     = image.Pt(0, -1)
	northEast = image.Pt(1, -1)
	east      = image.Pt(1, 0)
	southEast = image.Pt(1, 1)
	south     = image.Pt(0, 1)
	southWest = image.Pt(-1, 1)
	west      = image.Pt(-1, 0)
	northWest = image.Pt(-1, -1)
)

var ring = []image.Point{north, northEast, east, southEast, south, southWest, west, northWest}

// speckPattern is one despeckle pass. A removal pass clears foreground
// pixels whose neighbors are all background; a fill pass sets background
// pixels whose neighbors are all foreground. The open side is the one edge
// neighbor the test ignores, so specks attached to a line end and notches
// in an edge are treated like fully isolated pixels.
type speckPattern struct {
	name string
	fill bool
	open image.Point
}

// despecklePasses run in this order; each one sees the result of the
// previous pass. Every pass tests the center pixel and seven ring neighbors;
// the four diagonal corners are always among them. For remove-north the
// required-absent neighbors are NE, E, SE, S, SW, W and NW, so only N may be
// foreground; the other passes rotate the open side to E, S and W. Fill
// passes use the same neighborhoods with foreground required instead.
var despecklePasses = []speckPattern{
	{name: "remove-north", open: north},
	{name: "remove-east", open: east},
	{name: "remove-south", open: south},
	{name: "remove-west", open: west},
	{name: "fill-north", fill: true, open: north},
	{name: "fill-east", fill: true, open: east},
	{name: "fill-south", fill: true, open: south},
	{name: "fill-west", fill: true, open: west},
}

// neighbors returns the ring without the open side.
func (p speckPattern) neighbors() []image.Point {
	out := make([]image.Point, 0, len(ring)-1)
	for _, n := range ring {
		if n != p.open {
			out = append(out, n)
		}
	}
	return out
}

// Despeckle removes isolated foreground pixels and fills isolated
// background pixels of img in place.
func Despeckle(img *bitmap.Image) error {
	return defaultEngine.Despeckle(img)
}

// Despeckle removes isolated foreground pixels and fills isolated
// background pixels of img in place. The passes are strictly sequential.
func (e *Engine) Despeckle(img *bitmap.Image) error {
	if err := bitmap.RequireBinary(img); err != nil {
		return err
	}

	before := img.Power()
	for _, p := range despecklePasses {
		if err := e.despecklePass(img, p); err != nil {
			return err
		}
	}
	logging.Logger().Debug("despeckle", "before", before, "after", img.Power())
	return nil
}

func (e *Engine) despecklePass(img *bitmap.Image, p speckPattern) error {
	if p.fill {
		// background pixels whose neighbors are all set
		mask, err := e.andMask(img, p.neighbors())
		if err != nil {
			return err
		}
		return img.Or(mask)
	}

	// keep foreground pixels with at least one set neighbor
	mask, err := e.orMask(img, p.neighbors())
	if err != nil {
		return err
	}
	return img.And(mask)
}
