package attribute

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalization contract for consumers of raw capability values.
//
// The vendor reports temperature and humidity in tenths once the magnitude
// exceeds the plausible direct range, and formaldehyde concentration in
// micrograms while the exposed unit is mg/m³. Both conversions are idempotent
// on already-normalized values.

// NormalizeTemperature converts tenth-of-degree raw values to degrees.
// Values with absolute magnitude at or below 100 are already in degrees.
func NormalizeTemperature(v float64) float64 {
	if math.Abs(v) > 100 {
		return v / 10
	}
	return v
}

// NormalizeHumidity converts tenth-of-percent raw values to percent.
func NormalizeHumidity(v float64) float64 {
	if math.Abs(v) > 100 {
		return v / 10
	}
	return v
}

// NormalizeFormaldehyde converts µg/m³ raw values to mg/m³.
// Values at or below 1 are passed through unchanged.
func NormalizeFormaldehyde(v float64) float64 {
	if v > 1 {
		return v / 1000
	}
	return v
}

// Normalize applies the class-specific conversion for a measurement class.
// Classes without a conversion return the value unchanged.
func Normalize(class MeasurementClass, v float64) float64 {
	switch class {
	case ClassTemperature:
		return NormalizeTemperature(v)
	case ClassHumidity:
		return NormalizeHumidity(v)
	case ClassFormaldehyde:
		return NormalizeFormaldehyde(v)
	default:
		return v
	}
}

// ToBool coerces a raw capability value to a boolean. The vendor delivers
// booleans as JSON booleans or as the strings "true"/"false".
func ToBool(v any) (bool, error) {
	switch value := v.(type) {
	case bool:
		return value, nil
	case string:
		switch strings.ToLower(value) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("value %v cannot be read as bool", v)
}

// ToFloat64 coerces a raw capability value to a float64.
// JSON numbers arrive as float64; the vendor occasionally sends numeric strings.
func ToFloat64(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
