package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	"github.com/robotalks/cmdlink.go/pkg/l1"
)

// DefaultConnectRetry is the interval between initial connect attempts.
const DefaultConnectRetry = 2 * time.Second

// Announcer keeps the device connected to the broker and its metadata
// retained on the meta topic. The retained metadata is cleared when the
// device stops or the connection is lost.
type Announcer struct {
	PubSub *PubSub
	Info   l1.DeviceInfo

	metaJSON []byte
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(opts *Options, info l1.DeviceInfo) (*Announcer, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts.Client.SetBinaryWill(opts.TopicPrefix+DeviceTopic(info.Ref, TopicMeta), nil, 1, true)
	if opts.Client.ClientID == "" {
		opts.Client.SetClientID("cmdlink:" + info.Ref.Name())
	}
	a := &Announcer{
		PubSub:   New(opts),
		Info:     info,
		metaJSON: meta,
	}
	a.PubSub.OnConnect = func(*PubSub) { a.announce() }
	return a, nil
}

// AddToLoop implements LoopAdder.
func (a *Announcer) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("mqtt", a))
}

// Run implements Runnable.
func (a *Announcer) Run(ctx context.Context) error {
	for {
		err := a.PubSub.Connect()
		if err == nil {
			break
		}
		glog.Warningf("mqtt connect: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(DefaultConnectRetry):
		}
	}
	<-ctx.Done()
	a.PubSub.PubWith(DeviceTopic(a.Info.Ref, TopicMeta), nil, 1, true).WaitTimeout(time.Second)
	a.PubSub.Close()
	return ctx.Err()
}

func (a *Announcer) announce() {
	a.PubSub.PubWith(DeviceTopic(a.Info.Ref, TopicMeta), a.metaJSON, 1, true)
}
