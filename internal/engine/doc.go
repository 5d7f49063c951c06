// Package engine drives the synchronization between the vendor cloud and
// the local device registry.
//
// A running engine session owns three activities:
//
//   - a poll loop that fetches every device's value snapshot on a fixed
//     interval, with per-device isolation and loop-level backoff
//   - one heartbeat goroutine per device, keeping the cloud serving fresh
//     values
//   - a control consumer that turns control-requested events into
//     send-and-verify capability writes followed by a forced poll
//
// Start returns a Session handle; starting a new session supersedes the
// old one. A superseded session still shuts its goroutines down on Stop,
// but only the engine's current session may publish the gateway-offline
// event, so a stale shutdown cannot mark a healthy replacement offline.
package engine
