package attribute

import "strings"

// Identifiers that are metadata rather than actionable capabilities.
var excludedIdentifiers = map[string]bool{
	"wifi_info": true,
	"timestamp": true,
}

// fanSpeedIdentifier is the select attribute that carries fan gears. The
// vendor schema omits the "off" gear, so a synthetic code is prepended
// before the comparison table is built.
const (
	fanSpeedIdentifier  = "fan_speed_enum"
	fanSpeedOffCode     = 255
	fanSpeedOffLabel    = "0gear"
	compositeFanKey     = "fan"
	compositePM25Key    = "pm25"
	compositeFilterKey  = "filter"
)

// Parse maps one raw digital-model entry plus the device's current snapshot
// to a typed capability. It is pure and deterministic: no I/O, no clock.
//
// Rules are applied in order, first match wins; entries matching no rule are
// rejected (nil, false). An entry whose identifier is absent from the
// snapshot is not actionable and is rejected outright.
func Parse(raw RawAttribute, snapshot map[string]any) (*Capability, bool) {
	if _, ok := snapshot[raw.Identifier]; !ok {
		return nil, false
	}
	if excludedIdentifiers[raw.Identifier] {
		return nil, false
	}

	switch {
	case raw.Access == AccessRead:
		return parseSensor(raw), true

	case raw.Access == AccessReadWrite && strings.EqualFold(raw.Schema.Type, "boolean"):
		return parseSwitch(raw), true

	case raw.Access == AccessReadWrite && raw.Schema.Step != nil && isNumericType(raw.Schema.Type):
		return parseNumber(raw), true

	case raw.Access == AccessReadWrite && strings.EqualFold(raw.Schema.Type, "integer") && len(raw.Schema.Enum) > 0:
		return parseSelect(raw), true
	}

	return nil, false
}

// ParseGlobal runs the cross-attribute pass over a device's full digital
// model. A device exposing particulate concentration, filter status and a raw
// fan control at the same time is an air purifier; a composite fan capability
// is synthesized for it. The raw sub-capabilities remain available alongside.
func ParseGlobal(raws []RawAttribute) []*Capability {
	byID := make(map[string]RawAttribute, len(raws))
	for _, raw := range raws {
		byID[raw.Identifier] = raw
	}

	_, hasPM25 := byID[compositePM25Key]
	_, hasFilter := byID[compositeFilterKey]
	fanRaw, hasFan := byID[compositeFanKey]
	if !hasPM25 || !hasFilter || !hasFan {
		return nil
	}

	return []*Capability{{
		Key:         fanRaw.Identifier,
		DisplayName: displayName(fanRaw),
		Kind:        KindFan,
		Options: map[string]any{
			"speed_key":  fanSpeedIdentifier,
			"pm25_key":   compositePM25Key,
			"filter_key": compositeFilterKey,
		},
	}}
}

func parseSensor(raw RawAttribute) *Capability {
	options := map[string]any{}

	if isNumericType(raw.Schema.Type) {
		class, state, unit := guessMeasurement(raw)
		if class != "" {
			options[OptionMeasurementClass] = class
		}
		if state != "" {
			options[OptionStateClass] = state
		}
		if unit != "" {
			options[OptionUnit] = unit
		}
	}

	return &Capability{
		Key:         raw.Identifier,
		DisplayName: displayName(raw),
		Kind:        KindSensor,
		Options:     options,
	}
}

func parseSwitch(raw RawAttribute) *Capability {
	return &Capability{
		Key:         raw.Identifier,
		DisplayName: displayName(raw),
		Kind:        KindSwitch,
		Options:     map[string]any{},
	}
}

func parseNumber(raw RawAttribute) *Capability {
	options := map[string]any{
		OptionStep: float64(*raw.Schema.Step),
	}
	if raw.Schema.Minimum != nil {
		options[OptionMin] = float64(*raw.Schema.Minimum)
	}
	if raw.Schema.Maximum != nil {
		options[OptionMax] = float64(*raw.Schema.Maximum)
	}

	if _, _, unit := guessMeasurement(raw); unit != "" {
		options[OptionUnit] = unit
	}

	return &Capability{
		Key:         raw.Identifier,
		DisplayName: displayName(raw),
		Kind:        KindNumber,
		Options:     options,
	}
}

func parseSelect(raw RawAttribute) *Capability {
	codes := make([]int64, 0, len(raw.Schema.Enum)+1)
	labels := make([]string, 0, len(raw.Schema.EnumDesc)+1)

	if raw.Identifier == fanSpeedIdentifier {
		codes = append(codes, fanSpeedOffCode)
		labels = append(labels, fanSpeedOffLabel)
	}

	for _, code := range raw.Schema.Enum {
		codes = append(codes, int64(code))
	}
	labels = append(labels, raw.Schema.EnumDesc...)

	table := NewEnumTable(codes, labels)

	return &Capability{
		Key:         raw.Identifier,
		DisplayName: displayName(raw),
		Kind:        KindSelect,
		Options: map[string]any{
			OptionLabels: table.Labels(),
		},
		Ext: map[string]any{
			ExtComparisonTable: table,
		},
	}
}

func isNumericType(schemaType string) bool {
	return strings.EqualFold(schemaType, "integer") || strings.EqualFold(schemaType, "double")
}

// guessMeasurement infers the measurement class, state class and unit of a
// numeric attribute from its identifier and display name.
//
// Identifier rules take priority over display-name keyword rules; the
// cumulative keyword only upgrades the state class and keeps scanning.
func guessMeasurement(raw RawAttribute) (MeasurementClass, StateClass, string) {
	identifier := strings.ToLower(raw.Identifier)
	name := strings.ToLower(displayName(raw))

	var state StateClass
	if strings.Contains(name, "累计") || strings.Contains(name, "total") {
		state = StateClassTotal
	}

	// Identifier rules first.
	switch {
	case strings.Contains(identifier, "pm25"):
		return ClassPM25, StateClassMeasurement, UnitMicrograms
	case strings.Contains(identifier, "aal"):
		return ClassAQI, StateClassMeasurement, ""
	case strings.Contains(identifier, "hcho"):
		return ClassFormaldehyde, StateClassMeasurement, UnitMilligramsM
	}

	// Display-name keyword rules, bilingual.
	switch {
	case strings.Contains(name, "天数") || strings.Contains(name, "days"):
		return ClassDuration, StateClassMeasurement, UnitDays
	case strings.Contains(name, "温度") || strings.Contains(name, "temperature"):
		return ClassTemperature, state, UnitCelsius
	case strings.Contains(name, "湿度") || strings.Contains(name, "humidity"):
		return ClassHumidity, state, UnitPercent
	case strings.Contains(name, "寿命") || strings.Contains(name, "life"):
		return ClassLifeLeft, state, UnitPercent
	case strings.Contains(name, "水位") || strings.Contains(name, "water level"):
		return ClassLiquidLevel, state, UnitPercent
	case strings.Contains(name, "甲醛") || strings.Contains(name, "formaldehyde"):
		return ClassFormaldehyde, state, UnitMilligramsM
	}

	return "", state, ""
}
