// Package attribute parses raw digital-model entries into typed capabilities.
//
// The parser is a pure mapping: one raw schema entry plus the device's
// current snapshot either yields exactly one Capability (sensor, switch,
// select, number or fan) or rejects the entry. A separate cross-attribute
// pass synthesizes a composite fan capability for air purifiers.
//
// The package also carries the value-side contract shared by consumers:
// bidirectional enum tables for select capabilities and the numeric
// normalization rules for temperature, humidity and formaldehyde readings.
package attribute
