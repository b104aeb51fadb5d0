package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/processing/selection"
)

const (
	labelScale     = 0.7
	labelThickness = 2
	boxThickness   = 2
	labelOffsetX   = 5
	labelLineGap   = 25
)

// MarkColor is drawn on a BGR frame, so this is pure blue.
var MarkColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}

// Annotator renders the operator view: the raw frame in colour with every
// selected particle boxed and labelled with its physical position.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

func (a *Annotator) Name() string {
	return "frame_annotator"
}

// Annotate writes a 3-channel copy of raw into dst and draws on it. raw is
// already oriented, so dst shares the orientation of every other output.
func (a *Annotator) Annotate(raw gocv.Mat, particles []selection.Particle, thumb image.Point, dst *gocv.Mat) error {
	if raw.Empty() {
		return fmt.Errorf("%s: empty input", a.Name())
	}

	switch raw.Channels() {
	case 1:
		gocv.CvtColor(raw, dst, gocv.ColorGrayToBGR)
	case 3:
		raw.CopyTo(dst)
	default:
		return fmt.Errorf("%s: unsupported channel count %d", a.Name(), raw.Channels())
	}

	half := image.Pt(thumb.X/2, thumb.Y/2)
	for _, p := range particles {
		box := selection.CropRect(p.Centroid, thumb)
		gocv.Rectangle(dst, box, MarkColor, boxThickness)

		origin := image.Pt(p.Centroid.X+half.X+labelOffsetX, p.Centroid.Y-half.Y/2)
		gocv.PutText(dst, fmt.Sprintf("x: %.1f", p.Position.X), origin,
			gocv.FontHersheySimplex, labelScale, MarkColor, labelThickness)
		gocv.PutText(dst, fmt.Sprintf("y: %.1f", p.Position.Y), origin.Add(image.Pt(0, labelLineGap)),
			gocv.FontHersheySimplex, labelScale, MarkColor, labelThickness)
	}
	return nil
}
