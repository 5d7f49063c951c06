package relay

import (
	"github.com/lboswell/treeow-core/internal/attribute"
	"github.com/lboswell/treeow-core/internal/device"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// normalizedValue converts a raw vendor value into its consumer-facing
// form using the capability's measurement class. Values without a class,
// or non-numeric values, pass through untouched.
func normalizedValue(d *device.Device, key string, v any) any {
	f, ok := numericValue(d, key, v)
	if !ok {
		return v
	}
	return f
}

// numericValue reports the normalized numeric form of a capability value,
// or false when the value is not numeric.
func numericValue(d *device.Device, key string, v any) (float64, bool) {
	f, ok := attribute.ToFloat64(v)
	if !ok {
		return 0, false
	}

	capability, ok := d.Capability(key)
	if !ok {
		return f, true
	}
	class, ok := capability.Options[attribute.OptionMeasurementClass].(attribute.MeasurementClass)
	if !ok {
		return f, true
	}
	return attribute.Normalize(class, f), true
}
