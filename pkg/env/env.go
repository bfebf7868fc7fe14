package env

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/stream"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/websocket"
	"github.com/robotalks/cmdlink.go/pkg/metrics"
)

// WebsocketPath is where the websocket transport is served.
const WebsocketPath = "/packets"

// Env is the device side runtime: the transport queue, the worker
// polling it and the transports feeding it.
type Env struct {
	Config *Config

	Queue       *l0.ChanQueue
	Mux         *l0.CommandMux
	Worker      *l0.Worker
	Link        *comm.Link
	Diagnostics l0.Diagnostics
	Registry    *prometheus.Registry
	Announcer   *mqtt.Announcer
}

// NewEnv creates Env from config. Command handlers are registered on Mux.
func (c *Config) NewEnv(meta l1.DeviceMeta) (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	e := &Env{
		Config:   c,
		Queue:    l0.NewChanQueue(c.QueueCapacity),
		Mux:      l0.NewCommandMux(),
		Registry: prometheus.NewRegistry(),
	}
	e.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	diag, err := metrics.New(e.Registry)
	if err != nil {
		return nil, err
	}
	e.Diagnostics = l0.MultiDiagnostics{l0.LogDiagnostics{}, diag}

	dispatchers := l0.Dispatchers{e.Mux}
	if c.MQTTURL != "" {
		opts, err := mqtt.ParseURL(c.MQTTURL)
		if err != nil {
			return nil, fmt.Errorf("invalid MQTT URL: %w", err)
		}
		if e.Announcer, err = mqtt.NewAnnouncer(opts, l1.DeviceInfo{Ref: c.Device, Meta: meta}); err != nil {
			return nil, err
		}
		dispatchers = append(dispatchers, mqtt.NewEventBridge(e.Announcer.PubSub, c.Device))
	}

	e.Worker = l0.NewWorker(e.Queue, dispatchers, c.Limits()).WithDiagnostics(e.Diagnostics)
	e.Worker.StallTimeout = c.StallTimeout
	e.Link = comm.NewLink(e.Queue).WithDiagnostics(e.Diagnostics)
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv(meta l1.DeviceMeta) *Env {
	e, err := c.NewEnv(meta)
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds the worker and the configured transports to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Interval = e.Config.PollInterval
	loop.Add(e.Worker, e.Link)
	if e.Announcer != nil {
		rw := mqtt.NewReadWriter(e.Announcer.PubSub).ForDevice(e.Config.Device)
		loop.Add(e.Announcer)
		loop.AddRunnable(fx.NamedRun("mqtt-sub", rw), e.Link.Attach("mqtt", rw))
	}
	if addr := e.Config.StreamAddr; addr != "" {
		loop.AddRunnable(fx.NamedRun("stream", stream.NewServer(addr, e.Link.Serve)))
	}
	if addr := e.Config.WebsocketAddr; addr != "" {
		loop.AddRunnable(fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
			mux := http.NewServeMux()
			mux.Handle(WebsocketPath, websocket.Handler(ctx, e.Link.Serve))
			return serveHTTP(ctx, addr, mux)
		})))
	}
	if addr := e.Config.MetricsAddr; addr != "" {
		loop.AddRunnable(fx.NamedRun("metrics", fx.RunFunc(func(ctx context.Context) error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler(e.Registry))
			return serveHTTP(ctx, addr, mux)
		})))
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	glog.Infof("http listening on %s", addr)
	return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
}
