package filters

import (
	"fmt"

	"gocv.io/x/gocv"
)

// GrayscaleConverter reduces camera frames to a single 8-bit channel.
// Multi-channel frames keep their first channel; monochrome cameras deliver
// the same value on every channel.
type GrayscaleConverter struct{}

func NewGrayscaleConverter() *GrayscaleConverter {
	return &GrayscaleConverter{}
}

func (g *GrayscaleConverter) Name() string {
	return "grayscale_converter"
}

func (g *GrayscaleConverter) Apply(src gocv.Mat, dst *gocv.Mat) error {
	switch src.Channels() {
	case 1:
		src.CopyTo(dst)
	case 3, 4:
		gocv.ExtractChannel(src, dst, 0)
	default:
		return fmt.Errorf("%s: unsupported channel count %d", g.Name(), src.Channels())
	}
	return nil
}
