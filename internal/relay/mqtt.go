package relay

import (
	"encoding/json"
	"fmt"

	"github.com/lboswell/treeow-core/internal/device"
	"github.com/lboswell/treeow-core/internal/eventbus"
	"github.com/lboswell/treeow-core/internal/infrastructure/mqtt"
)

// Broker is the MQTT surface the relay needs; *mqtt.Client satisfies it.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
}

// MQTT mirrors the event bus onto an MQTT broker.
//
// Device state and gateway status are published retained, so a subscriber
// connecting later immediately sees the last known state. Messages on the
// per-device set topics come back in as control requests.
type MQTT struct {
	broker   Broker
	bus      *eventbus.Bus
	registry *device.Registry
	logger   Logger
	qos      byte

	cancels []func()
}

// NewMQTT creates the republisher. Start wires it to the bus and broker.
func NewMQTT(broker Broker, bus *eventbus.Bus, registry *device.Registry, qos byte) *MQTT {
	return &MQTT{
		broker:   broker,
		bus:      bus,
		registry: registry,
		logger:   noopLogger{},
		qos:      qos,
	}
}

// SetLogger sets the logger for the republisher.
func (m *MQTT) SetLogger(logger Logger) {
	m.logger = logger
}

// Start subscribes to the bus topics and to the broker's set topics.
func (m *MQTT) Start() error {
	if err := m.broker.Subscribe(m.broker.Topics().DeviceSetWildcard(), m.qos, m.onSetMessage); err != nil {
		return fmt.Errorf("relay: subscribe to set topics: %w", err)
	}

	m.cancels = append(m.cancels,
		m.bus.SubscribeState(m.onState),
		m.bus.SubscribeGateway(m.onGateway),
	)
	return nil
}

// Stop detaches from the bus and the broker's set topics.
func (m *MQTT) Stop() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil

	if err := m.broker.Unsubscribe(m.broker.Topics().DeviceSetWildcard()); err != nil {
		m.logger.Warn("relay: unsubscribe failed", "error", err)
	}
}

// onState republishes the device's full snapshot, not just the changed
// keys, so the retained message is always a complete picture.
func (m *MQTT) onState(ev eventbus.StateChanged) {
	d, err := m.registry.Get(ev.DeviceID)
	if err != nil {
		return
	}

	snapshot := d.Snapshot()
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		out[k] = normalizedValue(d, k, v)
	}

	payload, err := json.Marshal(out)
	if err != nil {
		m.logger.Error("relay: state payload marshal failed", "device_id", ev.DeviceID, "error", err)
		return
	}
	if err := m.broker.PublishRetained(m.broker.Topics().DeviceState(ev.DeviceID), payload); err != nil {
		m.logger.Warn("relay: state publish failed", "device_id", ev.DeviceID, "error", err)
	}
}

func (m *MQTT) onGateway(ev eventbus.GatewayStatus) {
	payload, _ := json.Marshal(map[string]bool{"online": ev.Online})
	if err := m.broker.PublishRetained(m.broker.Topics().GatewayStatus(), payload); err != nil {
		m.logger.Warn("relay: gateway status publish failed", "error", err)
	}
}

// onSetMessage turns an inbound set-topic message into a control request.
// The payload is a JSON object of capability key to desired value.
func (m *MQTT) onSetMessage(topic string, payload []byte) error {
	deviceID := m.broker.Topics().DeviceIDFromSetTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("relay: unexpected set topic %q", topic)
	}
	if _, err := m.registry.Get(deviceID); err != nil {
		return fmt.Errorf("relay: set for unknown device %s", deviceID)
	}

	var attrs map[string]any
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return fmt.Errorf("relay: set payload for %s is not a JSON object: %w", deviceID, err)
	}
	if len(attrs) == 0 {
		return nil
	}

	m.bus.PublishControl(eventbus.ControlRequest{DeviceID: deviceID, Attributes: attrs})
	return nil
}
