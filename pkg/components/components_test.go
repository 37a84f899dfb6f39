package components

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"binmorph/pkg/bitmap"
)

func find(t *testing.T, img *bitmap.Image) []*Component {
	t.Helper()
	set, err := Find(img)
	require.NoError(t, err)
	for _, c := range set {
		require.NoError(t, c.Validate())
	}
	return set
}

func totalPower(set []*Component) int {
	n := 0
	for _, c := range set {
		n += c.Power()
	}
	return n
}

func randomImage(width, height int, density float64, rng *rand.Rand) *bitmap.Image {
	img := bitmap.MustNewBinary(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if rng.Float64() < density {
				img.Set(x, y, true)
			}
		}
	}
	return img
}

func TestSolidRectangle(t *testing.T) {
	img := bitmap.MustNewBinary(100, 20)
	for y := 3; y < 13; y++ {
		require.NoError(t, img.SetRun(y, 30, 50, true))
	}

	set := find(t, img)
	require.Len(t, set, 1)
	assert.Equal(t, image.Rect(30, 3, 80, 13), set[0].Bounds())
	assert.Equal(t, 500, set[0].Power())
}

func TestBridgeMerges(t *testing.T) {
	img := bitmap.MustParse(
		"###.....###",
		"###.....###",
		"###########",
		"###.....###",
	)
	set := find(t, img)
	require.Len(t, set, 1)
	assert.Equal(t, img.Power(), set[0].Power())
	assert.Equal(t, img.Bounds(), set[0].Bounds())

	require.NoError(t, img.SetRun(2, 3, 5, false))
	set = find(t, img)
	require.Len(t, set, 2)
	assert.Equal(t, img.Power(), totalPower(set))
}

func TestUShapeMergesLate(t *testing.T) {
	// the left and right arms are separate components until the last row
	img := bitmap.MustParse(
		"#.#.#",
		"#.#.#",
		"#####",
	)
	set := find(t, img)
	require.Len(t, set, 1)
	assert.Equal(t, 11, set[0].Power())
	// merging moves strokes without joining them
	assert.Equal(t, 7, set[0].StrokeCount())
}

func TestDiagonalIsNotConnected(t *testing.T) {
	img := bitmap.MustParse(
		"#...",
		".#..",
		"..#.",
	)
	set := find(t, img)
	assert.Len(t, set, 3)
}

func TestManyMergesOnOneStroke(t *testing.T) {
	img := bitmap.MustParse(
		"#.#.#.#.#",
		"#########",
		"#.#.#.#.#",
		"#########",
	)
	set := find(t, img)
	require.Len(t, set, 1)
	assert.Equal(t, img.Power(), set[0].Power())
}

func TestWideRowsAcrossWords(t *testing.T) {
	img := bitmap.MustNewBinary(200, 3)
	require.NoError(t, img.SetRun(0, 60, 10, true))
	require.NoError(t, img.SetRun(1, 69, 70, true))
	require.NoError(t, img.SetRun(2, 130, 70, true))
	require.NoError(t, img.SetRun(0, 150, 3, true))

	set := find(t, img)
	require.Len(t, set, 2)
	sorted := Sorted(set)
	assert.Equal(t, image.Rect(60, 0, 200, 3), sorted[0].Bounds())
	assert.Equal(t, image.Rect(150, 0, 153, 1), sorted[1].Bounds())
}

func TestEmptyImage(t *testing.T) {
	set := find(t, bitmap.MustNewBinary(10, 10))
	assert.Empty(t, set)
}

func TestUnsupportedDepth(t *testing.T) {
	img, err := bitmap.New(4, 4, 24)
	require.NoError(t, err)
	_, err = Find(img)
	assert.ErrorIs(t, err, bitmap.ErrUnsupportedDepth)

	_, err = Find(nil)
	assert.ErrorIs(t, err, bitmap.ErrInvalidArgument)
}

// graphComponents labels img with a pixel graph as an independent oracle.
func graphComponents(img *bitmap.Image) [][]image.Point {
	g := simple.NewUndirectedGraph()
	id := func(x, y int) int64 { return int64(y*img.Width + x) }
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.Get(x, y) {
				g.AddNode(simple.Node(id(x, y)))
			}
		}
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if !img.Get(x, y) {
				continue
			}
			if img.Get(x+1, y) {
				g.SetEdge(g.NewEdge(simple.Node(id(x, y)), simple.Node(id(x+1, y))))
			}
			if img.Get(x, y+1) {
				g.SetEdge(g.NewEdge(simple.Node(id(x, y)), simple.Node(id(x, y+1))))
			}
		}
	}

	var out [][]image.Point
	for _, cc := range topo.ConnectedComponents(g) {
		pts := make([]image.Point, len(cc))
		for i, n := range cc {
			pts[i] = image.Pt(int(n.ID())%img.Width, int(n.ID())/img.Width)
		}
		out = append(out, pts)
	}
	return out
}

func TestMatchesGraphOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 25; i++ {
		w, h := 10+rng.Intn(150), 5+rng.Intn(30)
		img := randomImage(w, h, 0.35+0.3*rng.Float64(), rng)

		set := find(t, img)
		want := graphComponents(img)
		require.Len(t, set, len(want), "case %d", i)
		assert.Equal(t, img.Power(), totalPower(set), "power conservation, case %d", i)

		for _, pts := range want {
			var owner *Component
			for _, c := range set {
				if c.Contains(pts[0].X, pts[0].Y) {
					owner = c
					break
				}
			}
			require.NotNil(t, owner, "case %d: pixel %v unlabeled", i, pts[0])
			require.Equal(t, len(pts), owner.Power(), "case %d", i)
			for _, p := range pts {
				require.True(t, owner.Contains(p.X, p.Y), "case %d: %v", i, p)
			}
		}
	}
}

func TestBoundsTightness(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	img := randomImage(80, 40, 0.5, rng)
	for _, c := range find(t, img) {
		var tight image.Rectangle
		for y, s := range c.EnumStrokes() {
			r := image.Rect(s.X, y, s.End(), y+1)
			require.True(t, r.In(c.Bounds()))
			tight = tight.Union(r)
		}
		assert.Equal(t, tight, c.Bounds())
	}
}

func TestAddStrokeAndMerge(t *testing.T) {
	a := newComponent(5, Stroke{X: 2, Length: 3})
	a.AddStroke(6, Stroke{X: 3, Length: 1})
	a.AddStroke(6, Stroke{X: 0, Length: 2})
	require.NoError(t, a.Validate())
	assert.Equal(t, 6, a.Power())

	b := newComponent(2, Stroke{X: 10, Length: 2})
	b.AddStroke(6, Stroke{X: 5, Length: 2})
	a.MergeWith(b)
	require.NoError(t, a.Validate())

	assert.Equal(t, image.Rect(0, 2, 12, 7), a.Bounds())
	assert.Equal(t, 10, a.Power())

	var row6 []Stroke
	for y, s := range a.EnumStrokes() {
		if y == 6 {
			row6 = append(row6, s)
		}
	}
	assert.Equal(t, []Stroke{{0, 2}, {3, 1}, {5, 2}}, row6)
	assert.True(t, a.Contains(10, 2))
	assert.False(t, a.Contains(2, 6))
}

func TestEnumStrokesStopsEarly(t *testing.T) {
	c := newComponent(0, Stroke{X: 0, Length: 1})
	c.AddStroke(1, Stroke{X: 0, Length: 1})
	c.AddStroke(2, Stroke{X: 0, Length: 1})

	n := 0
	for range c.EnumStrokes() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestValidateCatchesBrokenComponent(t *testing.T) {
	c := newComponent(0, Stroke{X: 0, Length: 4})
	c.rows[0] = append(c.rows[0], Stroke{X: 2, Length: 4})
	assert.Error(t, c.Validate())

	c = newComponent(0, Stroke{X: 0, Length: 4})
	c.bounds = image.Rect(0, 0, 5, 1)
	assert.Error(t, c.Validate())
}

func BenchmarkFind(b *testing.B) {
	img := randomImage(2048, 2048, 0.45, rand.New(rand.NewSource(3)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Find(img); err != nil {
			b.Fatal(err)
		}
	}
}
