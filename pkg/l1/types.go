package l1

import (
	"context"
	"fmt"
	"strings"

	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
)

// DeviceRef is a reference to a device.
type DeviceRef struct {
	// Type is the device type (product).
	Type string
	// ID is unique ID of the device.
	ID string
}

// ParseDeviceRef parses the string form returned by Name.
func ParseDeviceRef(s string) (DeviceRef, error) {
	items := strings.Split(s, "/")
	if len(items) != 2 || items[0] == "" || items[1] == "" {
		return DeviceRef{}, fmt.Errorf("invalid device ref %q, expect TYPE/ID", s)
	}
	return DeviceRef{Type: items[0], ID: items[1]}, nil
}

// Name retrieves the name from ref.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates DeviceRef is valid.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// DeviceMeta provides metadata for a device.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// DeviceInfo provides information of a device.
type DeviceInfo struct {
	Ref  DeviceRef
	Meta DeviceMeta
}

// Connector is used by hosts to reach devices.
type Connector interface {
	// Discover enumerates announced devices.
	Discover(context.Context) ([]DeviceInfo, error)
	// Dial opens a packet connection to the device.
	Dial(context.Context, DeviceRef) (comm.PacketReadWriteCloser, error)
}
