package device

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cmdlink.go/pkg/cli/sh"
	"github.com/robotalks/cmdlink.go/pkg/l0/comm"
	dev "github.com/robotalks/cmdlink.go/pkg/l0/comm/device"
)

func getCmd(name string, req, res comm.CommandID, newValue func() interface{}) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			v := newValue()
			err := sh.Request(c, req, res, nil, func(payload []byte) error {
				return dev.Decode(payload, v)
			})
			if err == nil {
				sh.Print(c, v)
			}
		}),
	}
}

var (
	// VersionCmd queries the firmware version.
	VersionCmd = getCmd("version", dev.CmdGetVersion, dev.CmdGetVersionRes,
		func() interface{} { return &dev.Version{} })

	// SerialCmd queries the serial number.
	SerialCmd = getCmd("serial", dev.CmdGetSerial, dev.CmdGetSerialRes,
		func() interface{} { return &dev.Serial{} })

	// StatsCmd queries statistics.
	StatsCmd = getCmd("stats", dev.CmdGetStatistics, dev.CmdGetStatisticsRes,
		func() interface{} { return &dev.Statistics{} })

	// VideoCmd queries the latest video classification.
	VideoCmd = getCmd("video", dev.CmdGetVideoClassification, dev.CmdGetVideoClassificationRes,
		func() interface{} { return &dev.Classification{} })

	// AudioCmd queries the latest audio classification.
	AudioCmd = getCmd("audio", dev.CmdGetAudioClassification, dev.CmdGetAudioClassificationRes,
		func() interface{} { return &dev.Classification{} })

	// ToggleCmd switches a feature.
	ToggleCmd = ishell.Cmd{
		Name: "toggle",
		Help: "NAME on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("expect NAME on|off, NAME is one of %v", dev.ToggleNames()))
				return
			}
			on, err := parseOnOff(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			cmd, err := dev.ToggleCommand(c.Args[0], on)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Conn.Send(cmd, nil); err != nil {
				c.Err(err)
				return
			}
			c.Println(dev.CommandName(cmd))
		}),
	}

	// CameraClockCmd sets the camera clock.
	CameraClockCmd = ishell.Cmd{
		Name: "camera-clock",
		Help: "HZ",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("clock in Hz expected"))
				return
			}
			hz, err := strconv.ParseUint(c.Args[0], 10, 32)
			if err != nil {
				c.Err(err)
				return
			}
			payload := make([]byte, 4)
			binary.LittleEndian.PutUint32(payload, uint32(hz))
			if err := sh.ShellFrom(c).Conn.Send(dev.CmdSetCameraClock, payload); err != nil {
				c.Err(err)
			}
		}),
	}
)

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "1", "true", "enable":
		return true, nil
	case "off", "0", "false", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expect on or off, got %q", s)
}

func init() {
	sh.AddCmds(
		&VersionCmd,
		&SerialCmd,
		&StatsCmd,
		&VideoCmd,
		&AudioCmd,
		&ToggleCmd,
		&CameraClockCmd,
	)
}
