package monitor

import (
	"encoding/json"
	"net/http"

	"freeswim-tracker/internal/config"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// paramsView is the wire form of a parameter snapshot.
type paramsView struct {
	Version             uint64             `json:"version"`
	BinaryThreshold     int                `json:"binary_threshold"`
	FilterSize          int                `json:"filter_size"`
	MinArea             float64            `json:"min_area"`
	CalibrationRectPos  [2]float64         `json:"calibration_rect_pos"`
	CalibrationRectSize [2]float64         `json:"calibration_rect_size"`
	DimensionSize       [2]float64         `json:"dimension_size"`
	MaxParticles        int                `json:"max_particle_number"`
	ThumbnailSize       [2]int             `json:"rect_size"`
	History             int                `json:"history"`
	Orientation         config.Orientation `json:"orientation"`
}

func viewOf(p config.Parameters) paramsView {
	return paramsView{
		Version:             p.Version,
		BinaryThreshold:     p.BinaryThreshold,
		FilterSize:          p.FilterSize,
		MinArea:             p.MinArea,
		CalibrationRectPos:  [2]float64{p.CalibrationRectPos.X, p.CalibrationRectPos.Y},
		CalibrationRectSize: [2]float64{p.CalibrationRectSize.X, p.CalibrationRectSize.Y},
		DimensionSize:       [2]float64{p.DimensionSize.X, p.DimensionSize.Y},
		MaxParticles:        p.MaxParticles,
		ThumbnailSize:       [2]int{p.ThumbnailSize.X, p.ThumbnailSize.Y},
		History:             p.History,
		Orientation:         p.Orientation,
	}
}
