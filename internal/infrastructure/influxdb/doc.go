// Package influxdb wraps the InfluxDB v2 client for state-history
// recording.
//
// Writes go through the non-blocking batched write API: recording a
// capability value never stalls the sync loops, and batches flush on the
// configured interval or on graceful shutdown. Async write failures are
// surfaced through an error callback.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
package influxdb
