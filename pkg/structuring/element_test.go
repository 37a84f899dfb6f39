package structuring

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquare(t *testing.T) {
	sq, err := Square(3)
	require.NoError(t, err)

	assert.Len(t, sq.Offsets(), 9)
	assert.Equal(t, image.Rect(-1, -1, 2, 2), sq.Bounds())
	assert.Contains(t, sq.Offsets(), image.Pt(0, 0))
	assert.Contains(t, sq.Offsets(), image.Pt(-1, 1))

	_, err = Square(0)
	assert.ErrorIs(t, err, ErrInvalidElement)
}

func TestRectangleAnchor(t *testing.T) {
	r, err := Rectangle(4, 2, image.Pt(0, 1))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, -1, 4, 1), r.Bounds())
	assert.Equal(t, []image.Point{{0, -1}, {0, 0}}, r.VerticalElements())
	assert.Equal(t, []image.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, r.HorizontalElements())

	w, h := r.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	_, err = Rectangle(4, 2, image.Pt(4, 0))
	assert.ErrorIs(t, err, ErrInvalidElement)
}

func TestBrickIsSeparable(t *testing.T) {
	b, err := Brick(5, 2)
	require.NoError(t, err)

	var e Element = b
	s, ok := e.(Separable)
	require.True(t, ok)
	assert.Len(t, s.VerticalElements(), 2)
	assert.Len(t, s.HorizontalElements(), 5)
	assert.Equal(t, image.Pt(2, 1), b.Anchor())
}

func TestCross(t *testing.T) {
	c, err := Cross(3, 5)
	require.NoError(t, err)

	assert.Len(t, c.Offsets(), 7)
	assert.Equal(t, image.Rect(-1, -2, 2, 3), c.Bounds())
	assert.NotContains(t, c.Offsets(), image.Pt(1, 1))

	var e Element = c
	_, ok := e.(Separable)
	assert.False(t, ok)
}

func TestPoints(t *testing.T) {
	p, err := Points(image.Pt(0, 0), image.Pt(2, -1), image.Pt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []image.Point{{0, 0}, {2, -1}}, p.Offsets())
	assert.Equal(t, image.Rect(0, -1, 3, 1), p.Bounds())

	_, err = Points()
	assert.ErrorIs(t, err, ErrInvalidElement)
}

func TestParse(t *testing.T) {
	e, err := Parse("square", 3, 0, nil)
	require.NoError(t, err)
	assert.Len(t, e.Offsets(), 9)

	e, err = Parse("rectangle", 3, 2, &image.Point{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), e.Bounds())

	e, err = Parse("cross", 3, 3, nil)
	require.NoError(t, err)
	assert.Len(t, e.Offsets(), 5)

	_, err = Parse("disk", 3, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidElement)

	e, err = Parse("brick", 0, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidElement)
	assert.Nil(t, e)
}
