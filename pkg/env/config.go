// Package env provides the configuration of the binaries: defaults,
// environment overrides, an optional TOML file and command line flags,
// in increasing precedence.
package env

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1"
)

// Config provides common options of the daemon and tools.
type Config struct {
	Device      l1.DeviceRef
	Description string

	// MQTTURL specifies the MQTT broker, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTURL string
	// StreamAddr is the TCP address of the length-prefixed stream transport.
	StreamAddr string
	// WebsocketAddr is the HTTP address serving websocket on /packets.
	WebsocketAddr string
	// MetricsAddr is the HTTP address serving /metrics.
	MetricsAddr string

	PollInterval         time.Duration
	StallTimeout         time.Duration
	QueueCapacity        int
	MaxCommandBufferSize int

	// ConfigFile is the TOML file loaded by Load.
	ConfigFile string
}

// Default returns the defaults with environment overrides applied.
func Default() *Config {
	c := &Config{
		Device:               l1.DeviceRef{Type: "cmdlink"},
		MQTTURL:              "mqtt://localhost:1883/cmdlink/",
		StreamAddr:           ":7701",
		MetricsAddr:          ":9701",
		PollInterval:         fx.DefaultInterval,
		QueueCapacity:        l0.DefaultQueueCapacity,
		MaxCommandBufferSize: l0.MaxCommandBufferSize,
	}
	c.ApplyEnv(os.Getenv)
	if c.Device.ID == "" {
		c.Device.ID = MachineID()
	}
	return c
}

// ApplyEnv overrides settings from CMDLINK_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if val := getenv("CMDLINK_TYPE"); val != "" {
		c.Device.Type = val
	}
	if val := getenv("CMDLINK_ID"); val != "" {
		c.Device.ID = val
	}
	if val := getenv("CMDLINK_MQTT_URL"); val != "" {
		c.MQTTURL = val
	}
	if val := getenv("CMDLINK_STREAM_ADDR"); val != "" {
		c.StreamAddr = val
	}
	if val := getenv("CMDLINK_WS_ADDR"); val != "" {
		c.WebsocketAddr = val
	}
	if val := getenv("CMDLINK_METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}
	if val := getenv("CMDLINK_CONFIG"); val != "" {
		c.ConfigFile = val
	}
}

// SetupFlags registers command line flags.
func (c *Config) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Device.Type, "type", c.Device.Type, "Device type")
	fs.StringVar(&c.Device.ID, "id", c.Device.ID, "Device ID")
	fs.StringVar(&c.Description, "description", c.Description, "Device description")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL, empty to disable")
	fs.StringVar(&c.StreamAddr, "stream", c.StreamAddr, "TCP stream transport address, empty to disable")
	fs.StringVar(&c.WebsocketAddr, "ws", c.WebsocketAddr, "Websocket transport address, empty to disable")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Metrics address, empty to disable")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Worker polling interval")
	fs.DurationVar(&c.StallTimeout, "stall-timeout", c.StallTimeout, "Reset an assembly idle this long, 0 to disable")
	fs.IntVar(&c.QueueCapacity, "queue", c.QueueCapacity, "Transport queue capacity of each direction")
	fs.IntVar(&c.MaxCommandBufferSize, "max-command-size", c.MaxCommandBufferSize, "Command buffer size")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "TOML config file")
}

// Load loads ConfigFile if specified after flags are parsed.
// Flags explicitly set on the command line take precedence over the file.
func (c *Config) Load(fs *flag.FlagSet) error {
	if c.ConfigFile == "" {
		return nil
	}
	explicit := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if err := c.LoadFile(c.ConfigFile); err != nil {
		return err
	}
	for name, val := range explicit {
		if err := fs.Set(name, val); err != nil {
			return err
		}
	}
	return nil
}

type fileConfig struct {
	Type                 string `toml:"type"`
	ID                   string `toml:"id"`
	Description          string `toml:"description"`
	MQTTURL              string `toml:"mqtt_url"`
	StreamAddr           string `toml:"stream_addr"`
	WebsocketAddr        string `toml:"websocket_addr"`
	MetricsAddr          string `toml:"metrics_addr"`
	PollInterval         string `toml:"poll_interval"`
	StallTimeout         string `toml:"stall_timeout"`
	QueueCapacity        int    `toml:"queue_capacity"`
	MaxCommandBufferSize int    `toml:"max_command_buffer_size"`
}

// LoadFile overlays settings defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	strs := []struct {
		key string
		val string
		dst *string
	}{
		{"type", raw.Type, &c.Device.Type},
		{"id", raw.ID, &c.Device.ID},
		{"description", raw.Description, &c.Description},
		{"mqtt_url", raw.MQTTURL, &c.MQTTURL},
		{"stream_addr", raw.StreamAddr, &c.StreamAddr},
		{"websocket_addr", raw.WebsocketAddr, &c.WebsocketAddr},
		{"metrics_addr", raw.MetricsAddr, &c.MetricsAddr},
	}
	for _, s := range strs {
		if meta.IsDefined(s.key) {
			*s.dst = strings.TrimSpace(s.val)
		}
	}

	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &c.PollInterval},
		{"stall_timeout", raw.StallTimeout, &c.StallTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		dur, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = dur
	}

	if meta.IsDefined("queue_capacity") {
		c.QueueCapacity = raw.QueueCapacity
	}
	if meta.IsDefined("max_command_buffer_size") {
		c.MaxCommandBufferSize = raw.MaxCommandBufferSize
	}
	return c.Validate()
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if !c.Device.IsValid() {
		return fmt.Errorf("device type and id must be specified")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("invalid queue capacity %d", c.QueueCapacity)
	}
	if c.MaxCommandBufferSize <= 0 {
		return fmt.Errorf("invalid command buffer size %d", c.MaxCommandBufferSize)
	}
	return nil
}

// Limits returns the protocol limits.
func (c *Config) Limits() l0.Limits {
	return l0.Limits{MaxPacketSize: l0.MaxPacketSize, MaxCommandBufferSize: c.MaxCommandBufferSize}
}

// String implements fmt.Stringer.
func (c *Config) String() string {
	return fmt.Sprintf("%s mqtt=%q stream=%q ws=%q metrics=%q stall=%s buffer=%d",
		c.Device.Name(), c.MQTTURL, c.StreamAddr, c.WebsocketAddr, c.MetricsAddr,
		c.StallTimeout, c.MaxCommandBufferSize)
}
