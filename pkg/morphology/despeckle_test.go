package morphology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binmorph/pkg/bitmap"
)

func TestDespeckleRemovesIsolatedPixel(t *testing.T) {
	img := bitmap.MustParse(
		".....",
		".....",
		"..#..",
		".....",
		".....",
	)
	require.NoError(t, Despeckle(img))
	assert.True(t, img.IsEmpty(), "got:\n%s", img)
}

func TestDespeckleFillsIsolatedHole(t *testing.T) {
	img := bitmap.MustParse(
		"#####",
		"#####",
		"##.##",
		"#####",
		"#####",
	)
	require.NoError(t, Despeckle(img))
	assert.Equal(t, 25, img.Power(), "got:\n%s", img)
}

func TestDespeckleRemovesPairInSequence(t *testing.T) {
	// remove-east drops the left pixel, remove-south then sees the right
	// pixel isolated
	img := bitmap.MustParse(
		"......",
		"......",
		"..##..",
		"......",
		"......",
	)
	require.NoError(t, Despeckle(img))
	assert.True(t, img.IsEmpty(), "got:\n%s", img)
}

func TestDespeckleSinglePassOrder(t *testing.T) {
	img := bitmap.MustParse(
		"......",
		"......",
		"..##..",
		"......",
		"......",
	)
	e := &Engine{}
	require.NoError(t, e.despecklePass(img, despecklePasses[0]))
	assert.Equal(t, 2, img.Power(), "remove-north keeps both pixels")

	require.NoError(t, e.despecklePass(img, despecklePasses[1]))
	assert.Equal(t, "......\n......\n...#..\n......\n......\n", img.String())
}

func TestDespeckleKeepsSolidShapes(t *testing.T) {
	img := bitmap.MustParse(
		"........",
		".####...",
		".####...",
		".####...",
		".####...",
		"........",
		"......##",
		"......##",
	)
	want := img.Clone()
	require.NoError(t, Despeckle(img))
	requireEqual(t, want, img)
}

func TestDespeckleFillsChannel(t *testing.T) {
	// fill-north closes the inner end, fill-east then sees the opening at
	// the border surrounded
	img := bitmap.MustParse(
		"###.###",
		"###.###",
		"#######",
	)
	require.NoError(t, Despeckle(img))
	assert.Equal(t, 21, img.Power(), "got:\n%s", img)
}

func TestDespeckleRejectsDepth(t *testing.T) {
	img, err := bitmap.New(3, 3, 32)
	require.NoError(t, err)
	assert.ErrorIs(t, Despeckle(img), bitmap.ErrUnsupportedDepth)
	assert.ErrorIs(t, Despeckle(nil), bitmap.ErrInvalidArgument)
}
