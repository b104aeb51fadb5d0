package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"
)

const maxConfigFileSize = 1 * 1024 * 1024

// FileConfig is the on-disk startup configuration. Every field is optional;
// omitted fields keep their defaults.
type FileConfig struct {
	BinaryThreshold     *int         `json:"binary_threshold,omitempty"`
	FilterSize          *int         `json:"filter_size,omitempty"`
	MinArea             *float64     `json:"min_area,omitempty"`
	CalibrationRectPos  *[2]float64  `json:"calibration_rect_pos,omitempty"`
	CalibrationRectSize *[2]float64  `json:"calibration_rect_size,omitempty"`
	DimensionSize       *[2]float64  `json:"dimension_size,omitempty"`
	MaxParticles        *int         `json:"max_particle_number,omitempty"`
	ThumbnailSize       *[2]int      `json:"rect_size,omitempty"`
	History             *int         `json:"history,omitempty"`
	Orientation         *Orientation `json:"orientation,omitempty"`
}

// LoadFile reads a JSON config file and merges it over Defaults.
func LoadFile(path string) (Parameters, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Parameters{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Parameters{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return Parameters{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Parameters{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Parameters{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	params := fc.Apply(Defaults())
	if err := params.Validate(); err != nil {
		return Parameters{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return params, nil
}

// Apply overlays the set fields of fc on base. The filter size goes through
// the same coercion as the runtime setter.
func (fc FileConfig) Apply(base Parameters) Parameters {
	p := base
	if fc.BinaryThreshold != nil {
		p.BinaryThreshold = *fc.BinaryThreshold
	}
	if fc.FilterSize != nil {
		p.FilterSize = CoerceFilterSize(*fc.FilterSize)
	}
	if fc.MinArea != nil {
		p.MinArea = *fc.MinArea
	}
	if fc.CalibrationRectPos != nil {
		p.CalibrationRectPos = r2.Vec{X: fc.CalibrationRectPos[0], Y: fc.CalibrationRectPos[1]}
	}
	if fc.CalibrationRectSize != nil {
		p.CalibrationRectSize = r2.Vec{X: fc.CalibrationRectSize[0], Y: fc.CalibrationRectSize[1]}
	}
	if fc.DimensionSize != nil {
		p.DimensionSize = r2.Vec{X: fc.DimensionSize[0], Y: fc.DimensionSize[1]}
	}
	if fc.MaxParticles != nil {
		p.MaxParticles = *fc.MaxParticles
	}
	if fc.ThumbnailSize != nil {
		p.ThumbnailSize = image.Pt(fc.ThumbnailSize[0], fc.ThumbnailSize[1])
	}
	if fc.History != nil {
		p.History = *fc.History
	}
	if fc.Orientation != nil {
		p.Orientation = *fc.Orientation
	}
	return p
}
