package attribute

import "image"

// Strip lays the particle_rois slots out left to right in one grayscale
// image. Empty slots stay black. Returns nil when there are no slots.
func Strip(thumbs []Thumbnail) *image.Gray {
	if len(thumbs) == 0 || thumbs[0].Image == nil {
		return nil
	}
	size := thumbs[0].Image.Bounds().Size()
	strip := image.NewGray(image.Rect(0, 0, size.X*len(thumbs), size.Y))
	for i, t := range thumbs {
		if t.Image == nil {
			continue
		}
		for y := 0; y < size.Y; y++ {
			row := t.Image.Pix[y*t.Image.Stride : y*t.Image.Stride+size.X]
			copy(strip.Pix[y*strip.Stride+i*size.X:], row)
		}
	}
	return strip
}
