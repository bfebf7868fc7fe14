package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine, hashed with
// the application name so the raw machine id isn't exposed on the broker.
// It falls back to "unknown" if the machine id is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID("cmdlink")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "unknown"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
