package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cmdlink.go/pkg/l1"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
)

// Connector implements l1.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration
	PubSub          *PubSub

	connectOnce sync.Once
	connectErr  error
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	ps, err := NewFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, PubSub: ps}, nil
}

func (c *Connector) connect() error {
	c.connectOnce.Do(func() {
		c.connectErr = c.PubSub.Connect()
	})
	return c.connectErr
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) (res []l1.DeviceInfo, err error) {
	if err = c.connect(); err != nil {
		return
	}
	resCh := make(chan l1.DeviceInfo, 16)
	sub := c.PubSub.Sub("+/+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := parseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	})
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Dial implements l1.Connector.
func (c *Connector) Dial(ctx context.Context, ref l1.DeviceRef) (comm.PacketReadWriteCloser, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	rw := NewReadWriter(c.PubSub).ForHost(ref)
	if err := rw.Open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// Close disconnects from the broker.
func (c *Connector) Close() error {
	return c.PubSub.Close()
}

func parseMeta(topic string, payload []byte) (info l1.DeviceInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || len(payload) == 0 {
		return
	}
	info.Ref = l1.DeviceRef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("invalid meta of %s: %v", info.Ref.Name(), err)
	}
	return info, true
}
