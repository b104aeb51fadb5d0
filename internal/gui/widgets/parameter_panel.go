package widgets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/control"
)

// Calibration modes offered by the panel.
const (
	CalibrationOpen   = "Open"
	CalibrationLocked = "Locked"
)

// Submitter forwards a setter call to the tracking routine.
type Submitter interface {
	SubmitValue(ctx context.Context, name string, value interface{}) error
}

type sliderDef struct {
	key    string
	label  string
	setter string
}

var sliderDefs = []sliderDef{
	{key: "binary_threshold", label: "Threshold [au]", setter: control.SetBinaryThreshold},
	{key: "filter_size", label: "Filter size [au]", setter: control.SetFilterSize},
	{key: "min_area", label: "Min. area [au]", setter: control.SetMinArea},
	{key: "x_dimension_size", label: "X dimension [mm]", setter: control.SetXDimensionSize},
	{key: "y_dimension_size", label: "Y dimension [mm]", setter: control.SetYDimensionSize},
}

// sliderValue reads the parameter a slider is bound to.
func sliderValue(p config.Parameters, key string) float64 {
	switch key {
	case "binary_threshold":
		return float64(p.BinaryThreshold)
	case "filter_size":
		return float64(p.FilterSize)
	case "min_area":
		return p.MinArea
	case "x_dimension_size":
		return p.DimensionSize.X
	case "y_dimension_size":
		return p.DimensionSize.Y
	}
	return 0
}

// ParameterPanel holds the operator controls. Slider releases and the
// calibration apply button become setter calls on the control channel.
type ParameterPanel struct {
	container    *fyne.Container
	submitter    Submitter
	timeout      time.Duration
	errorHandler func(setter string, err error)

	sliders     map[string]*widget.Slider
	labels      map[string]*widget.Label
	rectEntries [4]*widget.Entry
	applyRect   *widget.Button
	calibration *widget.Select
}

func NewParameterPanel(submitter Submitter, timeout time.Duration) *ParameterPanel {
	pp := &ParameterPanel{
		submitter: submitter,
		timeout:   timeout,
		sliders:   make(map[string]*widget.Slider, len(sliderDefs)),
		labels:    make(map[string]*widget.Label, len(sliderDefs)),
	}
	pp.setupPanel()
	return pp
}

func (pp *ParameterPanel) setupPanel() {
	pp.calibration = widget.NewSelect([]string{CalibrationOpen, CalibrationLocked}, func(mode string) {
		pp.setCalibrationLocked(mode == CalibrationLocked)
	})

	rect := container.NewGridWithColumns(2)
	for i, name := range []string{"Pos x", "Pos y", "Size x", "Size y"} {
		entry := widget.NewEntry()
		entry.SetPlaceHolder(name)
		pp.rectEntries[i] = entry
		rect.Add(entry)
	}
	pp.applyRect = widget.NewButton("Apply calibration", func() {
		value, err := parseRect(pp.rectTexts())
		if err != nil {
			pp.reportError(control.SetCalibrationRect, err)
			return
		}
		pp.submitAsync(control.SetCalibrationRect, value)
	})

	controls := container.NewVBox(
		widget.NewLabel("Calibration:"),
		pp.calibration,
		rect,
		pp.applyRect,
	)

	for _, def := range sliderDefs {
		r := config.ControlRanges[def.key]
		slider := widget.NewSlider(r.Min, r.Max)
		slider.Step = r.Step
		label := widget.NewLabel(sliderLabel(def.label, slider.Value))

		slider.OnChanged = func(value float64) {
			label.SetText(sliderLabel(def.label, value))
		}
		slider.OnChangeEnded = func(value float64) {
			pp.submitAsync(def.setter, int(value))
		}

		pp.sliders[def.key] = slider
		pp.labels[def.key] = label
		controls.Add(container.NewVBox(label, slider))
	}

	pp.container = container.NewVBox(controls)
	pp.calibration.SetSelected(CalibrationLocked)
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

func (pp *ParameterPanel) SetErrorHandler(handler func(setter string, err error)) {
	pp.errorHandler = handler
}

// SetParameters moves every control to the given snapshot without issuing
// setter calls.
func (pp *ParameterPanel) SetParameters(p config.Parameters) {
	for _, def := range sliderDefs {
		v := sliderValue(p, def.key)
		pp.sliders[def.key].SetValue(v)
		pp.labels[def.key].SetText(sliderLabel(def.label, v))
	}
	texts := [4]float64{
		p.CalibrationRectPos.X, p.CalibrationRectPos.Y,
		p.CalibrationRectSize.X, p.CalibrationRectSize.Y,
	}
	for i, v := range texts {
		pp.rectEntries[i].SetText(strconv.FormatFloat(v, 'f', -1, 64))
	}
}

// Locked reports whether calibration edits are disabled.
func (pp *ParameterPanel) Locked() bool {
	return pp.calibration.Selected == CalibrationLocked
}

func (pp *ParameterPanel) setCalibrationLocked(locked bool) {
	for _, e := range pp.rectEntries {
		if locked {
			e.Disable()
		} else {
			e.Enable()
		}
	}
	if locked {
		pp.applyRect.Disable()
	} else {
		pp.applyRect.Enable()
	}
}

func (pp *ParameterPanel) rectTexts() [4]string {
	var out [4]string
	for i, e := range pp.rectEntries {
		out[i] = e.Text
	}
	return out
}

func (pp *ParameterPanel) submitAsync(setter string, value interface{}) {
	go func() {
		if err := pp.submit(setter, value); err != nil {
			pp.reportError(setter, err)
		}
	}()
}

func (pp *ParameterPanel) submit(setter string, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), pp.timeout)
	defer cancel()
	return pp.submitter.SubmitValue(ctx, setter, value)
}

func (pp *ParameterPanel) reportError(setter string, err error) {
	if pp.errorHandler != nil {
		pp.errorHandler(setter, err)
	}
}

func sliderLabel(name string, value float64) string {
	return name + ": " + strconv.Itoa(int(value))
}

// parseRect reads pos x, pos y, size x, size y entry texts.
func parseRect(texts [4]string) (control.RectValue, error) {
	var v [4]float64
	for i, s := range texts {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return control.RectValue{}, fmt.Errorf("calibration field %d: %w", i, err)
		}
		v[i] = f
	}
	return control.RectValue{Pos: [2]float64{v[0], v[1]}, Size: [2]float64{v[2], v[3]}}, nil
}
