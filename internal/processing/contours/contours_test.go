package contours

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func square(x0, y0, side int) []image.Point {
	return []image.Point{
		{x0, y0},
		{x0, y0 + side},
		{x0 + side, y0 + side},
		{x0 + side, y0},
	}
}

func fill(m gocv.Mat, r image.Rectangle) {
	region := m.Region(r)
	region.SetTo(gocv.NewScalar(255, 0, 0, 0))
	region.Close()
}

func TestFromPoints_Square(t *testing.T) {
	c := FromPoints(3, square(10, 20, 4))

	assert.Equal(t, 3, c.Index)
	assert.False(t, c.Degenerate())
	assert.InDelta(t, 16.0, c.Area, 1e-9)
	assert.InDelta(t, 12.0, c.Centroid.X, 1e-9)
	assert.InDelta(t, 22.0, c.Centroid.Y, 1e-9)
}

func TestFromPoints_WindingDoesNotMatter(t *testing.T) {
	cw := square(0, 0, 6)
	ccw := make([]image.Point, len(cw))
	for i := range cw {
		ccw[i] = cw[len(cw)-1-i]
	}

	a := FromPoints(0, cw)
	b := FromPoints(0, ccw)
	assert.InDelta(t, a.Area, b.Area, 1e-9)
	assert.InDelta(t, a.Centroid.X, b.Centroid.X, 1e-9)
	assert.InDelta(t, a.Centroid.Y, b.Centroid.Y, 1e-9)
}

func TestFromPoints_Triangle(t *testing.T) {
	c := FromPoints(0, []image.Point{{0, 0}, {6, 0}, {0, 3}})

	assert.InDelta(t, 9.0, c.Area, 1e-9)
	assert.InDelta(t, 2.0, c.Centroid.X, 1e-9)
	assert.InDelta(t, 1.0, c.Centroid.Y, 1e-9)
}

func TestFromPoints_AreaFromContourArea(t *testing.T) {
	pts := []image.Point{{2, 2}, {2, 12}, {9, 14}, {17, 6}, {11, 1}}
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()

	c := FromPoints(7, pts)
	assert.InDelta(t, gocv.ContourArea(pv), c.Area, 1e-9)
	assert.Equal(t, pts, c.Points)
	assert.Greater(t, c.Centroid.X, 2.0)
	assert.Less(t, c.Centroid.X, 17.0)
}

func TestFromPoints_Degenerate(t *testing.T) {
	tests := map[string][]image.Point{
		"empty":     nil,
		"point":     {{5, 5}},
		"segment":   {{1, 1}, {4, 1}},
		"collinear": {{0, 0}, {2, 2}, {4, 4}, {2, 2}},
	}

	for name, pts := range tests {
		t.Run(name, func(t *testing.T) {
			c := FromPoints(0, pts)
			assert.True(t, c.Degenerate())
			assert.Zero(t, c.Area)
			assert.Zero(t, c.Centroid.X)
			assert.Zero(t, c.Centroid.Y)
		})
	}
}

func TestExtractor_FindsFilledRectangles(t *testing.T) {
	binary := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC1)
	defer binary.Close()

	fill(binary, image.Rect(5, 5, 15, 15))
	fill(binary, image.Rect(30, 40, 50, 50))

	found := NewExtractor().Extract(binary)
	require.Len(t, found, 2)

	byArea := map[int]Contour{}
	for _, c := range found {
		byArea[int(c.Area+0.5)] = c
	}

	// The boundary runs through the outermost pixel centres, so the polygon
	// spans one pixel less than the filled block on each axis.
	small, ok := byArea[81]
	require.True(t, ok, "areas: %v", byArea)
	assert.InDelta(t, 9.5, small.Centroid.X, 1e-9)
	assert.InDelta(t, 9.5, small.Centroid.Y, 1e-9)

	large, ok := byArea[171]
	require.True(t, ok, "areas: %v", byArea)
	assert.InDelta(t, 39.5, large.Centroid.X, 1e-9)
	assert.InDelta(t, 44.5, large.Centroid.Y, 1e-9)
}

func TestExtractor_EmptyMask(t *testing.T) {
	binary := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC1)
	defer binary.Close()

	assert.Empty(t, NewExtractor().Extract(binary))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Nil(t, NewExtractor().Extract(empty))
}
