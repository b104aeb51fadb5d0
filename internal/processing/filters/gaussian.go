package filters

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SmoothingSigma is the Gaussian sigma used for every kernel size.
const SmoothingSigma = 4.0

// SmoothingBorder replicates the edge by reflection without repeating the
// border pixel (OpenCV's default border).
const SmoothingBorder = gocv.BorderReflect101

type GaussianFilter struct{}

func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Name() string {
	return "gaussian_filter"
}

// Apply smooths src into dst with a square kernel of the given odd size.
func (g *GaussianFilter) Apply(src gocv.Mat, dst *gocv.Mat, kernelSize int) error {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return fmt.Errorf("%s: kernel size %d must be odd and >= 1", g.Name(), kernelSize)
	}
	if src.Empty() {
		return fmt.Errorf("%s: empty input", g.Name())
	}

	gocv.GaussianBlur(src, dst, image.Pt(kernelSize, kernelSize), SmoothingSigma, SmoothingSigma, SmoothingBorder)
	return nil
}
