package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cmdlink.go/pkg/env"
	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	"github.com/robotalks/cmdlink.go/pkg/l0/comm/device"
	"github.com/robotalks/cmdlink.go/pkg/l1"
)

// Set with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	conf       = env.Default()
	statsEvery = 5 * time.Second
)

func init() {
	conf.SetupFlags(flag.CommandLine)
	flag.DurationVar(&statsEvery, "stats-interval", statsEvery, "Interval to refresh device statistics, 0 to disable.")
}

func parseVersion(s string) (v device.Version) {
	fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Build)
	return
}

func main() {
	flag.Parse()
	if err := conf.Load(flag.CommandLine); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	glog.Infof("config: %s", conf)

	e := conf.MustNewEnv(l1.DeviceMeta{
		Description: conf.Description,
		Version:     version,
	})
	dev := device.New(parseVersion(version), device.SerialFrom(conf.Device.ID))
	dev.Responder = e.Worker
	dev.Register(e.Mux)

	loop := fx.NewLoop().Add(e)
	if statsEvery > 0 {
		started := time.Now()
		var last time.Time
		loop.AddController(fx.ControlFunc(func(cc fx.ControlContext) error {
			if now := cc.Time(); now.Sub(last) >= statsEvery {
				last = now
				stats := dev.Statistics()
				stats.Uptime = uint32(now.Sub(started) / time.Second)
				dev.UpdateStatistics(stats)
			}
			return nil
		}))
	}
	loop.RunOrFail(fx.NewRunner().HandleSignals().Context)
}
