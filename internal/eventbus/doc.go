// Package eventbus provides the typed in-process publish/subscribe layer that
// decouples the sync engine from its consumers.
//
// Three event kinds flow through the bus: state-changed (engine → consumers),
// gateway-status-changed (engine → consumers) and control-requested
// (consumers → engine). Delivery is synchronous fan-out to the subscribers
// registered at publish time, at most once each, with no persistence and no
// delivery guarantees beyond that.
package eventbus
