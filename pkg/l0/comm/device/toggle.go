package device

import (
	"fmt"
	"strings"

	"github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

// Toggle is a bit of the device feature flags.
type Toggle uint32

// Toggles.
const (
	ToggleVideo Toggle = 1 << iota
	ToggleAudio
	ToggleLCD
	ToggleLCDStatistics
	ToggleLCDProbability
	ToggleInactivity
	ToggleFlashLED
	ToggleVFlip
	ToggleCNN
)

// DefaultToggles is the power-on state.
const DefaultToggles = ToggleVideo | ToggleAudio | ToggleLCD | ToggleLCDProbability | ToggleCNN

type toggleDef struct {
	toggle  Toggle
	name    string
	enable  comm.CommandID
	disable comm.CommandID
}

var toggles = []toggleDef{
	{ToggleVideo, "video", CmdEnableVideo, CmdDisableVideo},
	{ToggleAudio, "audio", CmdEnableAudio, CmdDisableAudio},
	{ToggleLCD, "lcd", CmdEnableLCD, CmdDisableLCD},
	{ToggleLCDStatistics, "lcd-statistics", CmdEnableLCDStatistics, CmdDisableLCDStatistics},
	{ToggleLCDProbability, "lcd-probability", CmdEnableLCDProbability, CmdDisableLCDProbability},
	{ToggleInactivity, "inactivity", CmdEnableInactivity, CmdDisableInactivity},
	{ToggleFlashLED, "flash-led", CmdEnableFlashLED, CmdDisableFlashLED},
	{ToggleVFlip, "vflip", CmdEnableVFlip, CmdDisableVFlip},
	{ToggleCNN, "cnn", CmdEnableCNN, CmdDisableCNN},
}

// String implements fmt.Stringer.
func (t Toggle) String() string {
	var names []string
	for _, def := range toggles {
		if t&def.toggle != 0 {
			names = append(names, def.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ToggleNames lists the names of all toggles.
func ToggleNames() []string {
	names := make([]string, len(toggles))
	for n, def := range toggles {
		names[n] = def.name
	}
	return names
}

// ToggleCommand returns the command to switch a toggle by name.
func ToggleCommand(name string, on bool) (comm.CommandID, error) {
	for _, def := range toggles {
		if def.name == name {
			if on {
				return def.enable, nil
			}
			return def.disable, nil
		}
	}
	return 0, fmt.Errorf("unknown toggle %q", name)
}
