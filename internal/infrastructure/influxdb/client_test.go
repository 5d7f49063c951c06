package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/lboswell/treeow-core/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestWriteStateDisconnectedIsNoop(t *testing.T) {
	c := &Client{} // never connected

	// Must not panic or block.
	c.WriteState("dev-1", "temperature", 23.5, time.Now())
	c.WriteGatewayStatus(true, time.Now())
	c.Flush()
}

func TestCloseWithoutConnect(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
