package widgets

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageAreaWidth  = 640
	ImageAreaHeight = 480
	StripHeight     = 60
)

// ImageDisplay shows one frame attribute above the particle thumbnail strip.
type ImageDisplay struct {
	container fyne.CanvasObject
	frame     *canvas.Image
	strip     *canvas.Image
	choice    *widget.Select
	status    *widget.Label

	mu        sync.RWMutex
	attribute string
}

// NewImageDisplay offers the given attribute names; the first is shown
// initially.
func NewImageDisplay(attributes []string) *ImageDisplay {
	display := &ImageDisplay{}
	display.createComponents(attributes)
	display.setupLayout()
	return display
}

func (id *ImageDisplay) createComponents(attributes []string) {
	id.frame = canvas.NewImageFromImage(nil)
	id.frame.FillMode = canvas.ImageFillContain
	id.frame.ScaleMode = canvas.ImageScaleFastest
	id.frame.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	id.strip = canvas.NewImageFromImage(nil)
	id.strip.FillMode = canvas.ImageFillContain
	id.strip.ScaleMode = canvas.ImageScalePixels
	id.strip.SetMinSize(fyne.NewSize(ImageAreaWidth, StripHeight))

	id.status = widget.NewLabel("waiting for frames")

	id.choice = widget.NewSelect(attributes, func(name string) {
		id.mu.Lock()
		id.attribute = name
		id.mu.Unlock()
	})
	if len(attributes) > 0 {
		id.choice.SetSelected(attributes[0])
	}
}

func (id *ImageDisplay) setupLayout() {
	id.container = container.NewBorder(
		container.NewHBox(id.choice, id.status),
		id.strip,
		nil, nil,
		id.frame,
	)
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

// Attribute is the frame attribute currently selected. Safe to call from
// any goroutine.
func (id *ImageDisplay) Attribute() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.attribute
}

// The setters below must run on the fyne goroutine.

func (id *ImageDisplay) SetFrame(img image.Image) {
	id.frame.Image = img
	id.frame.Refresh()
}

func (id *ImageDisplay) SetThumbnails(img image.Image) {
	id.strip.Image = img
	id.strip.Refresh()
}

func (id *ImageDisplay) SetStatus(text string) {
	id.status.SetText(text)
}
