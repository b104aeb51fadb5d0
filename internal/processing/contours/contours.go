package contours

import (
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"
)

// Contour is one closed boundary found in a binary mask, with the moments
// needed to rank and place it.
type Contour struct {
	Index    int
	Points   []image.Point
	Area     float64
	Centroid r2.Vec
}

// Degenerate reports a contour with no enclosed area (a line or a point).
// Its centroid is undefined and left at the zero vector.
func (c Contour) Degenerate() bool {
	return c.Area == 0
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string {
	return "contour_extractor"
}

// Extract finds every outer and inner boundary in binary as a flat list,
// in the order OpenCV reports them.
func (e *Extractor) Extract(binary gocv.Mat) []Contour {
	if binary.Empty() {
		return nil
	}

	found := gocv.FindContours(binary, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer found.Close()

	out := make([]Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		out = append(out, fromVector(i, found.At(i)))
	}
	return out
}

// FromPoints builds a Contour from a closed polygon.
func FromPoints(index int, pts []image.Point) Contour {
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()
	return fromVector(index, pv)
}

// fromVector measures one contour. Area comes from ContourArea; the centroid
// from the contour moments of the same point set.
func fromVector(index int, pv gocv.PointVector) Contour {
	c := Contour{Index: index, Points: pv.ToPoints()}
	if pv.Size() < 3 {
		return c
	}
	c.Area = gocv.ContourArea(pv)
	if c.Area == 0 {
		return c
	}

	points := gocv.NewMatFromPointVector(pv, true)
	defer points.Close()

	m := gocv.Moments(points, false)
	if m["m00"] == 0 {
		c.Area = 0
		return c
	}
	c.Centroid = r2.Vec{X: m["m10"] / m["m00"], Y: m["m01"] / m["m00"]}
	return c
}
