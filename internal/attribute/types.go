package attribute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind classifies how a capability is surfaced to consumers.
type Kind string

// Capability kinds.
const (
	KindSensor Kind = "sensor"
	KindSwitch Kind = "switch"
	KindSelect Kind = "select"
	KindNumber Kind = "number"
	KindFan    Kind = "fan"
)

// Access modes as reported by the digital model.
const (
	AccessRead      = "r"
	AccessReadWrite = "rw"
)

// Option keys used in Capability.Options.
const (
	OptionMin              = "min"
	OptionMax              = "max"
	OptionStep             = "step"
	OptionLabels           = "labels"
	OptionMeasurementClass = "measurement_class"
	OptionStateClass       = "state_class"
	OptionUnit             = "unit"
)

// ExtComparisonTable is the Ext key holding the *EnumTable of a select capability.
const ExtComparisonTable = "value_comparison_table"

// MeasurementClass is the inferred physical quantity of a read-only numeric
// capability. Inference is best-effort; capabilities without a match simply
// carry no class.
type MeasurementClass string

// Measurement classes.
const (
	ClassTemperature  MeasurementClass = "temperature"
	ClassHumidity     MeasurementClass = "humidity"
	ClassDuration     MeasurementClass = "duration"
	ClassLifeLeft     MeasurementClass = "life_left"
	ClassPM25         MeasurementClass = "pm25"
	ClassAQI          MeasurementClass = "aqi"
	ClassLiquidLevel  MeasurementClass = "liquid_level"
	ClassFormaldehyde MeasurementClass = "formaldehyde"
)

// StateClass describes how a sensor series accumulates.
type StateClass string

// State classes.
const (
	StateClassMeasurement StateClass = "measurement"
	StateClassTotal       StateClass = "total"
)

// Measurement units.
const (
	UnitCelsius     = "°C"
	UnitPercent     = "%"
	UnitDays        = "d"
	UnitMicrograms  = "µg/m³"
	UnitMilligramsM = "mg/m³"
)

// Capability is one typed, parsed entry of a device's digital model.
// Capabilities are created once during device initialization and are
// immutable afterwards; a schema change requires re-initialization.
type Capability struct {
	// Key is the capability identifier, unique within a device.
	Key string

	// DisplayName is the human-readable name from the schema title.
	DisplayName string

	// Kind selects the consumer-facing control type.
	Kind Kind

	// Options carries presentation constraints (min/max/step/labels,
	// measurement class, unit) keyed by the Option* constants.
	Options map[string]any

	// Ext carries value-translation data, currently only the bidirectional
	// enum table of select capabilities under ExtComparisonTable.
	Ext map[string]any
}

// Table returns the enum comparison table of a select capability, or nil.
func (c *Capability) Table() *EnumTable {
	if c.Ext == nil {
		return nil
	}
	t, _ := c.Ext[ExtComparisonTable].(*EnumTable)
	return t
}

// RawAttribute is one raw entry of a device's digital model as returned by
// the vendor's profile endpoint.
type RawAttribute struct {
	Identifier string `json:"identifier"`

	// Title is a JSON-encoded object of localized names, e.g. {"zh":"温度"}.
	Title string `json:"title"`

	// Access is "r" for read-only or "rw" for read-write.
	Access string `json:"access"`

	Schema Schema `json:"schema"`
}

// Schema carries the raw value constraints of an attribute. The vendor is
// inconsistent about encoding numbers as JSON numbers or strings, so the
// numeric fields tolerate both.
type Schema struct {
	Type     string     `json:"type"`
	Minimum  *FlexFloat `json:"minimum"`
	Maximum  *FlexFloat `json:"maximum"`
	Step     *FlexFloat `json:"step"`
	Enum     []FlexInt  `json:"enum"`
	EnumDesc []string   `json:"enumDesc"`
}

// FlexFloat unmarshals a JSON number or a numeric string.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing number %q: %w", data, err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt unmarshals a JSON integer or a numeric string.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing integer %q: %w", data, err)
	}
	*i = FlexInt(v)
	return nil
}

// displayName extracts the localized display name from a raw title.
// Titles are JSON objects like {"zh":"风速"}; the Chinese entry wins, then
// English, then any entry. A title that is not valid JSON is used as-is.
func displayName(raw RawAttribute) string {
	var title map[string]string
	if err := json.Unmarshal([]byte(raw.Title), &title); err != nil {
		if raw.Title != "" {
			return raw.Title
		}
		return raw.Identifier
	}

	if name, ok := title["zh"]; ok && name != "" {
		return name
	}
	if name, ok := title["en"]; ok && name != "" {
		return name
	}
	for _, name := range title {
		if name != "" {
			return name
		}
	}
	return raw.Identifier
}
