// Package mqtt wraps paho.mqtt.golang for the Treeow daemon.
//
// It provides connection management with automatic reconnection, publish
// with timeout and payload limits, and subscription tracking so handlers
// survive a reconnect. The Last Will and Testament is wired to the gateway
// status topic: if the daemon dies without a graceful shutdown, the broker
// itself marks the gateway offline for every subscriber.
//
// Topic layout (prefix configurable, default "treeow"):
//
//	treeow/gateway/status          retained gateway online/offline JSON
//	treeow/device/<id>/state       retained per-device state JSON
//	treeow/device/<id>/set         inbound capability writes
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
package mqtt
