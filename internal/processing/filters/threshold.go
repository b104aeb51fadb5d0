package filters

import (
	"fmt"

	"gocv.io/x/gocv"
)

// BinaryThreshold marks every pixel >= threshold as 255 and the rest as 0.
type BinaryThreshold struct{}

func NewBinaryThreshold() *BinaryThreshold {
	return &BinaryThreshold{}
}

func (b *BinaryThreshold) Name() string {
	return "binary_threshold"
}

func (b *BinaryThreshold) Apply(src gocv.Mat, dst *gocv.Mat, threshold int) error {
	if threshold < 1 || threshold > 254 {
		return fmt.Errorf("%s: threshold %d outside [1,254]", b.Name(), threshold)
	}
	if src.Empty() {
		return fmt.Errorf("%s: empty input", b.Name())
	}

	// THRESH_BINARY keeps values strictly above its argument; on 8-bit
	// data "> t-1" is "≥ t".
	gocv.Threshold(src, dst, float32(threshold-1), 255, gocv.ThresholdBinary)
	return nil
}
