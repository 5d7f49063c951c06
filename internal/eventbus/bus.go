package eventbus

import "sync"

// StateChanged is published after a poll cycle (or a forced post-command poll)
// observed fresh values for a device. Attributes contains only the capability
// keys present in the raw payload that also exist in the device's known
// capability set.
type StateChanged struct {
	DeviceID   string
	Attributes map[string]any
}

// GatewayStatus is published when the sync engine's connection to the vendor
// cloud comes up or goes down. Consumers typically mirror it into an
// availability flag.
type GatewayStatus struct {
	Online bool
}

// ControlRequest asks the sync engine to write capability values to a device.
// The engine resolves the device from its registry by ID.
type ControlRequest struct {
	DeviceID   string
	Attributes map[string]any
}

// topic is a single-event-type subscriber set.
//
// Handlers registered at publish time each receive the event exactly once;
// there is no queueing, retry or delivery guarantee beyond that. Handlers run
// synchronously on the publisher's goroutine and should hand off long work.
type topic[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
}

func (t *topic[T]) subscribe(fn func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subs == nil {
		t.subs = make(map[int]func(T))
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

func (t *topic[T]) publish(ev T) {
	// Snapshot the subscriber set so handlers can subscribe/cancel
	// without deadlocking against the publish.
	t.mu.RLock()
	handlers := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Bus is the in-process event bus connecting the sync engine to its consumers.
// One topic per event kind; fan-out is at-most-once per currently registered
// subscriber and fire-and-forget.
//
// All methods are safe for concurrent use.
type Bus struct {
	state   topic[StateChanged]
	gateway topic[GatewayStatus]
	control topic[ControlRequest]
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// SubscribeState registers a handler for state-changed events.
// The returned cancel function removes the subscription; calling it more than
// once is safe.
func (b *Bus) SubscribeState(fn func(StateChanged)) func() {
	return b.state.subscribe(fn)
}

// PublishState delivers a state-changed event to all current subscribers.
func (b *Bus) PublishState(ev StateChanged) {
	b.state.publish(ev)
}

// SubscribeGateway registers a handler for gateway-status-changed events.
func (b *Bus) SubscribeGateway(fn func(GatewayStatus)) func() {
	return b.gateway.subscribe(fn)
}

// PublishGateway delivers a gateway-status-changed event to all current subscribers.
func (b *Bus) PublishGateway(ev GatewayStatus) {
	b.gateway.publish(ev)
}

// SubscribeControl registers a handler for control-requested events.
func (b *Bus) SubscribeControl(fn func(ControlRequest)) func() {
	return b.control.subscribe(fn)
}

// PublishControl delivers a control-requested event to all current subscribers.
func (b *Bus) PublishControl(ev ControlRequest) {
	b.control.publish(ev)
}
