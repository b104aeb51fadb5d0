package filters

import (
	"fmt"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/config"
)

// Normalizer brings a raw camera frame to the single-channel, correctly
// oriented raster every later stage expects.
type Normalizer struct {
	gray        *GrayscaleConverter
	orientation *OrientationFilter
	width       int
	height      int
	scratch     gocv.Mat
}

// NewNormalizer expects frames of width×height as delivered by the camera,
// before orientation correction.
func NewNormalizer(o config.Orientation, width, height int) *Normalizer {
	return &Normalizer{
		gray:        NewGrayscaleConverter(),
		orientation: NewOrientationFilter(o),
		width:       width,
		height:      height,
		scratch:     gocv.NewMat(),
	}
}

// OutputSize is the size of every normalized frame.
func (n *Normalizer) OutputSize() (int, int) {
	return n.orientation.OutputSize(n.width, n.height)
}

func (n *Normalizer) Normalize(src gocv.Mat, dst *gocv.Mat) error {
	if src.Cols() != n.width || src.Rows() != n.height {
		return fmt.Errorf("frame size %dx%d does not match declared %dx%d",
			src.Cols(), src.Rows(), n.width, n.height)
	}
	if err := n.gray.Apply(src, &n.scratch); err != nil {
		return err
	}
	return n.orientation.Apply(n.scratch, dst)
}

func (n *Normalizer) Close() error {
	return n.scratch.Close()
}
