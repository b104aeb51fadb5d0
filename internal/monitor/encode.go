package monitor

import (
	"fmt"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/opencv/safe"
)

// encodeJPEG compresses a shared output Mat without copying its pixels.
func encodeJPEG(m *safe.Mat, quality int) ([]byte, error) {
	if err := safe.ValidateMatForOperation(m, "jpeg encode"); err != nil {
		return nil, err
	}
	var out []byte
	err := m.View(func(mat gocv.Mat) error {
		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
		if err != nil {
			return err
		}
		defer buf.Close()
		out = append([]byte(nil), buf.GetBytes()...)
		return nil
	})
	return out, err
}

// encodeThumbnails lays the particle_rois slots out in one row and encodes
// it as PNG. Empty slots stay black.
func encodeThumbnails(thumbs []attribute.Thumbnail) ([]byte, error) {
	strip := attribute.Strip(thumbs)
	if strip == nil {
		return nil, fmt.Errorf("no thumbnails")
	}

	mat, err := gocv.NewMatFromBytes(strip.Rect.Dy(), strip.Rect.Dx(), gocv.MatTypeCV8UC1, strip.Pix)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
