package device

import (
	"fmt"

	"github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

// Command ids understood by the device. Requests and their responses
// are adjacent, responses are always a single packet.
const (
	CmdAbort comm.CommandID = comm.CommandAbort

	CmdGetVersion comm.CommandID = iota
	CmdGetVersionRes
	CmdGetSerial
	CmdGetSerialRes
	CmdGetStatistics
	CmdGetStatisticsRes
	CmdGetVideoClassification
	CmdGetVideoClassificationRes
	CmdGetAudioClassification
	CmdGetAudioClassificationRes

	CmdEnableVideo
	CmdDisableVideo
	CmdEnableAudio
	CmdDisableAudio
	CmdEnableLCD
	CmdDisableLCD
	CmdEnableLCDStatistics
	CmdDisableLCDStatistics
	CmdEnableLCDProbability
	CmdDisableLCDProbability
	CmdEnableInactivity
	CmdDisableInactivity
	CmdEnableFlashLED
	CmdDisableFlashLED
	CmdEnableVFlip
	CmdDisableVFlip
	CmdEnableCNN
	CmdDisableCNN

	CmdSetCameraClock
)

var commandNames = map[comm.CommandID]string{
	CmdAbort:                     "abort",
	CmdGetVersion:                "get-version",
	CmdGetVersionRes:             "version",
	CmdGetSerial:                 "get-serial",
	CmdGetSerialRes:              "serial",
	CmdGetStatistics:             "get-statistics",
	CmdGetStatisticsRes:          "statistics",
	CmdGetVideoClassification:    "get-video-classification",
	CmdGetVideoClassificationRes: "video-classification",
	CmdGetAudioClassification:    "get-audio-classification",
	CmdGetAudioClassificationRes: "audio-classification",
	CmdSetCameraClock:            "set-camera-clock",
}

func init() {
	for _, t := range toggles {
		commandNames[t.enable] = "enable-" + t.name
		commandNames[t.disable] = "disable-" + t.name
	}
}

// CommandName returns a readable name of the command id.
func CommandName(cmd comm.CommandID) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("cmd-%d", cmd)
}

// CommandByName looks up the command id by the name returned from
// CommandName.
func CommandByName(name string) (comm.CommandID, bool) {
	for cmd, n := range commandNames {
		if n == name {
			return cmd, true
		}
	}
	return 0, false
}
