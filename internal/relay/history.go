package relay

import (
	"time"

	"github.com/lboswell/treeow-core/internal/device"
	"github.com/lboswell/treeow-core/internal/eventbus"
)

// StateWriter is the time-series surface the recorder needs;
// *influxdb.Client satisfies it.
type StateWriter interface {
	WriteState(deviceID, capability string, value float64, at time.Time)
	WriteGatewayStatus(online bool, at time.Time)
}

// History records state-changed events as time-series points.
//
// Only numeric capability values are recorded; booleans and enum labels
// have no sensible place on a value axis. Values are normalized before
// writing so history queries line up with what consumers display.
type History struct {
	writer   StateWriter
	bus      *eventbus.Bus
	registry *device.Registry
	logger   Logger

	cancels []func()
	now     func() time.Time
}

// NewHistory creates the recorder. Start wires it to the bus.
func NewHistory(writer StateWriter, bus *eventbus.Bus, registry *device.Registry) *History {
	return &History{
		writer:   writer,
		bus:      bus,
		registry: registry,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the recorder.
func (h *History) SetLogger(logger Logger) {
	h.logger = logger
}

// Start subscribes to the bus topics.
func (h *History) Start() {
	h.cancels = append(h.cancels,
		h.bus.SubscribeState(h.onState),
		h.bus.SubscribeGateway(h.onGateway),
	)
}

// Stop detaches from the bus.
func (h *History) Stop() {
	for _, cancel := range h.cancels {
		cancel()
	}
	h.cancels = nil
}

func (h *History) onState(ev eventbus.StateChanged) {
	d, err := h.registry.Get(ev.DeviceID)
	if err != nil {
		return
	}

	at := h.now()
	for key, v := range ev.Attributes {
		f, ok := numericValue(d, key, v)
		if !ok {
			continue
		}
		h.writer.WriteState(ev.DeviceID, key, f, at)
	}
}

func (h *History) onGateway(ev eventbus.GatewayStatus) {
	h.writer.WriteGatewayStatus(ev.Online, h.now())
}
