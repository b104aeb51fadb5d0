package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/config"
)

// Setter names accepted on the control channel.
const (
	SetCalibrationRectPos  = "set_calibration_rect_pos"
	SetCalibrationRectSize = "set_calibration_rect_size"
	SetCalibrationRect     = "set_calibration_rect"
	SetXDimensionSize      = "set_x_dimension_size"
	SetYDimensionSize      = "set_y_dimension_size"
	SetMinArea             = "set_min_area"
	SetBinaryThreshold     = "set_binary_threshold"
	SetFilterSize          = "set_filter_size"
)

var (
	ErrUnknownSetter = errors.New("unknown setter")
	ErrBadValue      = errors.New("malformed setter value")
)

// RectValue is the payload of set_calibration_rect.
type RectValue struct {
	Pos  [2]float64 `json:"pos"`
	Size [2]float64 `json:"size"`
}

type setterFunc func(store *config.Store, raw json.RawMessage) error

var setters = map[string]setterFunc{
	SetCalibrationRectPos: func(s *config.Store, raw json.RawMessage) error {
		var v [2]float64
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetCalibrationRectPos(vec(v))
	},
	SetCalibrationRectSize: func(s *config.Store, raw json.RawMessage) error {
		var v [2]float64
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetCalibrationRectSize(vec(v))
	},
	SetCalibrationRect: func(s *config.Store, raw json.RawMessage) error {
		var v RectValue
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetCalibrationRect(vec(v.Pos), vec(v.Size))
	},
	SetXDimensionSize: func(s *config.Store, raw json.RawMessage) error {
		var v float64
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetXDimensionSize(v)
	},
	SetYDimensionSize: func(s *config.Store, raw json.RawMessage) error {
		var v float64
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetYDimensionSize(v)
	},
	SetMinArea: func(s *config.Store, raw json.RawMessage) error {
		var v int
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetMinArea(float64(v))
	},
	SetBinaryThreshold: func(s *config.Store, raw json.RawMessage) error {
		var v int
		if err := decode(raw, &v); err != nil {
			return err
		}
		return s.SetBinaryThreshold(v)
	},
	SetFilterSize: func(s *config.Store, raw json.RawMessage) error {
		var v int
		if err := decode(raw, &v); err != nil {
			return err
		}
		s.SetFilterSize(v)
		return nil
	},
}

// Names lists every setter, sorted.
func Names() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty", ErrBadValue)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return nil
}

func vec(v [2]float64) r2.Vec {
	return r2.Vec{X: v[0], Y: v[1]}
}
