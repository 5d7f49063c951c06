package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteState records one capability value observed during a poll cycle.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Values land in the device_state measurement, tagged by device and
// capability so dashboards can slice either way.
func (c *Client) WriteState(deviceID, capability string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id":  deviceID,
			"capability": capability,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteGatewayStatus records gateway online/offline transitions, giving
// history queries an availability overlay.
func (c *Client) WriteGatewayStatus(online bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if online {
		value = 1.0
	}

	point := write.NewPoint(
		"gateway_status",
		nil,
		map[string]interface{}{
			"online": value,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}
