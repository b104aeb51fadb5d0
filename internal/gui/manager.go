// Package gui is the optional operator window: live frame view, particle
// thumbnails and the parameter controls.
package gui

import (
	"context"
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/gui/widgets"
	"freeswim-tracker/internal/logger"
)

const (
	// PollInterval is how often the window pulls the latest outputs.
	PollInterval = 50 * time.Millisecond

	setterTimeout = 2 * time.Second
)

// Manager owns the window content and keeps it in step with the attribute
// store and the parameter store.
type Manager struct {
	window  fyne.Window
	outputs *attribute.Store
	params  *config.Store
	logger  logger.Logger

	imageDisplay   *widgets.ImageDisplay
	parameterPanel *widgets.ParameterPanel

	shownVersion uint64
}

func NewManager(window fyne.Window, outputs *attribute.Store, params *config.Store, submitter widgets.Submitter, log logger.Logger) *Manager {
	m := &Manager{
		window:         window,
		outputs:        outputs,
		params:         params,
		logger:         log,
		imageDisplay:   widgets.NewImageDisplay(attribute.FrameNames),
		parameterPanel: widgets.NewParameterPanel(submitter, setterTimeout),
	}

	m.parameterPanel.SetErrorHandler(m.showSetterError)
	snapshot := params.Snapshot()
	m.parameterPanel.SetParameters(snapshot)
	m.shownVersion = snapshot.Version

	window.SetContent(m.GetMainContainer())

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"image_width":  widgets.ImageAreaWidth,
		"image_height": widgets.ImageAreaHeight,
	})
	return m
}

func (m *Manager) GetMainContainer() fyne.CanvasObject {
	return container.NewBorder(
		nil, nil, nil,
		container.NewVScroll(m.parameterPanel.GetContainer()),
		m.imageDisplay.GetContainer(),
	)
}

// Run polls the stores until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Manager) refresh() {
	frame := m.currentFrame()
	strip, status := m.currentStrip()

	params, changed := m.paramsChanged()

	fyne.Do(func() {
		if frame != nil {
			m.imageDisplay.SetFrame(frame)
		}
		if strip != nil {
			m.imageDisplay.SetThumbnails(strip)
		}
		if status != "" {
			m.imageDisplay.SetStatus(status)
		}
		if changed {
			m.parameterPanel.SetParameters(params)
		}
	})
}

func (m *Manager) currentFrame() image.Image {
	mat, ok := m.outputs.Frame(m.imageDisplay.Attribute())
	if !ok {
		return nil
	}
	defer mat.Release()

	img, err := mat.ToImage()
	if err != nil {
		m.logger.Debug("GUIManager", "frame conversion failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return img
}

func (m *Manager) currentStrip() (image.Image, string) {
	thumbs, ok := m.outputs.Thumbnails()
	if !ok {
		return nil, ""
	}
	var img image.Image
	if strip := attribute.Strip(thumbs); strip != nil {
		img = strip
	}

	report, _ := m.outputs.Report()
	return img, statusText(report)
}

// paramsChanged returns the snapshot when a setter has run since the
// controls were last synced, whatever its source.
func (m *Manager) paramsChanged() (config.Parameters, bool) {
	if m.params.Version() == m.shownVersion {
		return config.Parameters{}, false
	}
	snapshot := m.params.Snapshot()
	m.shownVersion = snapshot.Version
	return snapshot, true
}

func (m *Manager) showSetterError(setter string, err error) {
	m.logger.Warning("GUIManager", "setter rejected", map[string]interface{}{
		"setter": setter,
		"error":  err.Error(),
	})
	fyne.Do(func() {
		dialog.ShowError(fmt.Errorf("%s: %w", setter, err), m.window)
	})
}

func statusText(r attribute.Report) string {
	return fmt.Sprintf("frame %d  particles %d  selected %d", r.Sequence, r.Total, r.Filtered)
}
