// Package relay connects the in-process event bus to external systems.
//
// Two relays exist, both optional and both plain bus subscribers:
//
//   - MQTT: republishes device state and gateway status to retained broker
//     topics, and turns inbound set-topic messages into control requests
//   - History: records numeric capability values and gateway transitions
//     to InfluxDB
//
// Values leaving the process are normalized first: the vendor encodes
// tenths of a degree and milligram concentrations as bare integers, and
// no external consumer should have to know that.
package relay
