package selection

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/calibration"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/processing/contours"
)

// Particle is an accepted detection for a single frame. It carries no
// identity across frames.
type Particle struct {
	// Index of the contour it came from, in discovery order.
	Index     int
	Centroid  image.Point
	Area      float64
	Box       image.Rectangle
	Thumbnail *image.Gray
	Position  r2.Vec
}

// Selection is the ranked, capacity bounded result of one frame.
type Selection struct {
	Particles []Particle
	// Accepted counts detections that passed the area and bounds checks,
	// before truncation to capacity.
	Accepted int
}

type Selector struct{}

func NewSelector() *Selector {
	return &Selector{}
}

func (s *Selector) Name() string {
	return "particle_selector"
}

// CropRect is the thumbnail box centred on c. For odd sizes the extra pixel
// falls on the right and bottom.
func CropRect(c image.Point, size image.Point) image.Rectangle {
	min := c.Sub(image.Pt(size.X/2, size.Y/2))
	return image.Rectangle{Min: min, Max: min.Add(size)}
}

// Select filters contours by area, crops a thumbnail for each from raw,
// maps centroids through the calibration in p, then keeps the largest
// p.MaxParticles. Ties keep discovery order.
func (s *Selector) Select(found []contours.Contour, raw gocv.Mat, p config.Parameters) Selection {
	if raw.Empty() || raw.Type() != gocv.MatTypeCV8UC1 {
		return Selection{}
	}

	bounds := image.Rect(0, 0, raw.Cols(), raw.Rows())
	mapper, err := calibration.NewMapper(calibration.FromParameters(p))
	if err != nil {
		return Selection{}
	}

	particles := make([]Particle, 0, len(found))
	for _, c := range found {
		if c.Degenerate() || c.Area < p.MinArea {
			continue
		}

		centroid := image.Pt(int(c.Centroid.X), int(c.Centroid.Y))
		box := CropRect(centroid, p.ThumbnailSize)
		if !box.In(bounds) {
			continue
		}

		particles = append(particles, Particle{
			Index:     c.Index,
			Centroid:  centroid,
			Area:      c.Area,
			Box:       box,
			Thumbnail: crop(raw, box),
			Position:  mapper.ToPhysical(r2.Vec{X: float64(centroid.X), Y: float64(centroid.Y)}),
		})
	}

	accepted := len(particles)

	sort.SliceStable(particles, func(i, j int) bool {
		return particles[i].Area > particles[j].Area
	})
	if len(particles) > p.MaxParticles {
		particles = particles[:p.MaxParticles]
	}

	return Selection{Particles: particles, Accepted: accepted}
}

func crop(raw gocv.Mat, box image.Rectangle) *image.Gray {
	region := raw.Region(box)
	defer region.Close()

	// Region shares the parent's stride; a clone is contiguous.
	patch := region.Clone()
	defer patch.Close()

	thumb := image.NewGray(image.Rect(0, 0, box.Dx(), box.Dy()))
	copy(thumb.Pix, patch.ToBytes())
	return thumb
}
