package mqtt

import "github.com/robotalks/cmdlink.go/pkg/l1"

// Topics under the device name, e.g. "cam/0a1b/rx".
const (
	// TopicRx carries packets from host to device.
	TopicRx = "rx"
	// TopicTx carries packets from device to host.
	TopicTx = "tx"
	// TopicMeta carries the retained device metadata.
	TopicMeta = "meta"
	// TopicEvents carries dispatched commands as events.
	TopicEvents = "events"
)

// DeviceTopic returns the topic of a device.
func DeviceTopic(ref l1.DeviceRef, name string) string {
	return ref.Name() + "/" + name
}
