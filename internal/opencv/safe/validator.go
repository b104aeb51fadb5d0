package safe

import (
	"fmt"

	"gocv.io/x/gocv"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	return nil
}

// ValidateFrame checks a raw camera frame before it enters the pipeline.
func ValidateFrame(frame gocv.Mat, operation string) error {
	if frame.Empty() {
		return fmt.Errorf("frame is empty for operation: %s", operation)
	}

	switch frame.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return fmt.Errorf("unsupported MatType %d for operation: %s", int(frame.Type()), operation)
	}

	return ValidateDimensions(frame.Cols(), frame.Rows(), operation)
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}
