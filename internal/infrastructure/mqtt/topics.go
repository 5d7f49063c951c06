package mqtt

import "strings"

// DefaultTopicPrefix is used when the config leaves the prefix empty.
const DefaultTopicPrefix = "treeow"

// Topics builds the daemon's topic names under a common prefix.
type Topics struct {
	Prefix string
}

// NewTopics creates a topic builder, falling back to the default prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// GatewayStatus is the retained gateway online/offline topic. It doubles
// as the Last Will topic.
func (t Topics) GatewayStatus() string {
	return t.Prefix + "/gateway/status"
}

// DeviceState is the retained per-device state topic.
func (t Topics) DeviceState(deviceID string) string {
	return t.Prefix + "/device/" + deviceID + "/state"
}

// DeviceSet is the inbound capability-write topic for one device.
func (t Topics) DeviceSet(deviceID string) string {
	return t.Prefix + "/device/" + deviceID + "/set"
}

// DeviceSetWildcard matches the set topic of every device.
func (t Topics) DeviceSetWildcard() string {
	return t.Prefix + "/device/+/set"
}

// DeviceIDFromSetTopic extracts the device ID from a set topic, or ""
// when the topic does not match the layout.
func (t Topics) DeviceIDFromSetTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/device/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
