package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cmdlink.go/pkg/env"
	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/mqtt"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Target      string

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	target     = os.Getenv("CMDLINK_TARGET")

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&AbortCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&target, "target", target, "Device to connect: TYPE/ID, tcp://HOST:PORT or ws://HOST:PORT/PATH.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Target:      target,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints DeviceInfo into friendly string for display.
func FormatInfo(info l1.DeviceInfo) string {
	s := info.Ref.Name()
	if info.Meta.Version != "" {
		s += " " + info.Meta.Version
	}
	if info.Meta.Description != "" {
		s += ": " + info.Meta.Description
	}
	return s
}

// Print prints v as JSON if requested, otherwise with fmt.
func Print(c *ishell.Context, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v)
}

// Request sends a command and decodes the response into v.
func Request(c *ishell.Context, cmd, res l0.CommandID, payload []byte, decode func([]byte) error) error {
	s := ShellFrom(c)
	resp, err := s.Conn.Request(context.Background(), cmd, res, payload)
	if err != nil {
		c.Err(err)
		return err
	}
	if err := decode(resp.PayloadSlice()); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// Discover discovers devices announced on the MQTT broker.
func (s *Shell) Discover() ([]l1.DeviceInfo, error) {
	connector, err := mqtt.NewConnector(s.Config.MQTTURL)
	if err != nil {
		return nil, err
	}
	defer connector.Close()
	return connector.Discover(context.TODO())
}

// SelectDevice discovers devices and asks for a choice.
func (s *Shell) SelectDevice() (*l1.DeviceInfo, error) {
	infoList, err := s.Discover()
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 devices discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the target.
func (s *Shell) Connect(target string) error {
	conn, err := Dial(context.TODO(), target, s.Config.MQTTURL, s.Config.Limits())
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", target))
	return nil
}

// Disconnect disconnects current device.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Target)
		}
		if err := s.Connect(s.Target); err != nil {
			log.Fatalf("connect %q failed: %v", s.Target, err)
		}
		defer s.Disconnect()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseCommandID parses a command id in decimal or 0x hex.
func ParseCommandID(s string) (l0.CommandID, error) {
	id, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid command id %q", s)
	}
	return l0.CommandID(id), nil
}

// ParseHex parses payload bytes, spaces and colons are ignored.
func ParseHex(args ...string) ([]byte, error) {
	s := strings.NewReplacer(" ", "", ":", "").Replace(strings.Join(args, ""))
	return hex.DecodeString(s)
}

var (
	// DiscoverCmd discovers devices.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.Discover()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.DeviceInfo{}
				}
				Print(c, infoList)
				return
			}
			if len(infoList) == 0 {
				c.Println("No devices found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE/ID | tcp://HOST:PORT | ws://HOST:PORT/PATH]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var target string
			if len(c.Args) > 0 {
				target = c.Args[0]
			} else {
				info, err := s.SelectDevice()
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no device discovered"))
					return
				}
				target = info.Ref.Name()
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends a raw command.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "ID [HEX...]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("command id expected"))
				return
			}
			cmd, err := ParseCommandID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			payload, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Conn.Send(cmd, payload); err != nil {
				c.Err(err)
				return
			}
			c.Printf("sent command %d, %d bytes\n", cmd, len(payload))
		}),
	}

	// AbortCmd sends the abort command.
	AbortCmd = ishell.Cmd{
		Name: "abort",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			if err := ShellFrom(c).Conn.Abort(); err != nil {
				c.Err(err)
			}
		}),
	}
)

// DefaultWatchDuration is how long watch prints packets without argument.
const DefaultWatchDuration = 5 * time.Second

// WatchCmd prints packets sent by the device for a while.
var WatchCmd = ishell.Cmd{
	Name: "watch",
	Help: "[DURATION]",
	Func: MustBeConnected(func(c *ishell.Context) {
		duration := DefaultWatchDuration
		if len(c.Args) > 0 {
			d, err := time.ParseDuration(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			duration = d
		}
		ctx, cancel := context.WithTimeout(context.Background(), duration)
		defer cancel()
		conn := ShellFrom(c).Conn
		for {
			pkt, err := conn.Next(ctx)
			if err != nil {
				if err != context.DeadlineExceeded {
					c.Err(err)
				}
				return
			}
			c.Printf("%s % X\n", pkt, pkt.PayloadSlice())
		}
	}),
}

// Main is a helper to provide a single call in main.
func Main() {
	conf := env.Default()
	conf.SetupFlags(flag.CommandLine)
	flag.Parse()
	if err := conf.Load(flag.CommandLine); err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
