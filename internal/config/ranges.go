package config

// Range bounds a parameter for operator controls.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// ControlRanges are the limits offered by the operator panel sliders.
var ControlRanges = map[string]Range{
	"binary_threshold": {Min: MinBinaryThreshold, Max: MaxBinaryThreshold, Step: 1},
	"filter_size":      {Min: 1, Max: 255, Step: 2},
	"min_area":         {Min: 1, Max: 255, Step: 1},
	"x_dimension_size": {Min: 1, Max: 1000, Step: 1},
	"y_dimension_size": {Min: 1, Max: 1000, Step: 1},
}
