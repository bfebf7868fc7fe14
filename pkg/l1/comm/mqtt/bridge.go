package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/any"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1"
)

// CommandTypeURLPrefix prefixes the TypeUrl of bridged command events.
const CommandTypeURLPrefix = "cmdlink/command/"

// Publisher publishes a payload to a topic.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// EventBridge is a Dispatcher publishing every completed command as an
// any.Any event, so observers see what the device executed.
type EventBridge struct {
	Publisher Publisher
	Topic     string
}

// NewEventBridge creates an EventBridge publishing to the device events topic.
func NewEventBridge(pub Publisher, ref l1.DeviceRef) *EventBridge {
	return &EventBridge{Publisher: pub, Topic: DeviceTopic(ref, TopicEvents)}
}

// Dispatch implements l0 comm.Dispatcher. It never waits for the broker.
func (b *EventBridge) Dispatch(ctx context.Context, cmd l0.CommandID, payload []byte) error {
	data, err := EncodeCommandEvent(cmd, payload)
	if err != nil {
		return err
	}
	token := b.Publisher.Pub(b.Topic, data)
	go func() {
		if token.Wait(); token.Error() != nil {
			glog.V(1).Infof("publish command %d event: %v", cmd, token.Error())
		}
	}()
	return nil
}

// EncodeCommandEvent encodes a command into a serialized any.Any.
// The payload is copied.
func EncodeCommandEvent(cmd l0.CommandID, payload []byte) ([]byte, error) {
	return proto.Marshal(&any.Any{
		TypeUrl: CommandTypeURLPrefix + strconv.Itoa(int(cmd)),
		Value:   append([]byte(nil), payload...),
	})
}

// DecodeCommandEvent decodes an event encoded by EncodeCommandEvent.
func DecodeCommandEvent(data []byte) (l0.CommandID, []byte, error) {
	var msg any.Any
	if err := proto.Unmarshal(data, &msg); err != nil {
		return 0, nil, err
	}
	if !strings.HasPrefix(msg.TypeUrl, CommandTypeURLPrefix) {
		return 0, nil, fmt.Errorf("unknown event type %q", msg.TypeUrl)
	}
	id, err := strconv.ParseUint(msg.TypeUrl[len(CommandTypeURLPrefix):], 10, 8)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid command event type %q: %w", msg.TypeUrl, err)
	}
	return l0.CommandID(id), msg.Value, nil
}
