package filters

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MaskProcessor turns a raw foreground mask into a smoothed mask and its
// binary classification. It holds no per-frame state.
type MaskProcessor struct {
	blur      *GaussianFilter
	threshold *BinaryThreshold
}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{
		blur:      NewGaussianFilter(),
		threshold: NewBinaryThreshold(),
	}
}

func (mp *MaskProcessor) SmoothAndThreshold(mask gocv.Mat, kernelSize, threshold int, filtered, binary *gocv.Mat) error {
	if err := mp.blur.Apply(mask, filtered, kernelSize); err != nil {
		return fmt.Errorf("smoothing failed: %w", err)
	}
	if err := mp.threshold.Apply(*filtered, binary, threshold); err != nil {
		return fmt.Errorf("thresholding failed: %w", err)
	}
	return nil
}
