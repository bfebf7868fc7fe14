package sh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/stream"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/websocket"
)

// DefaultResponseTimeout is how long to wait for a response.
const DefaultResponseTimeout = time.Second

// Conn is the host side of a device connection. Commands are segmented
// into packets, responses are single packets.
type Conn struct {
	Name    string
	RW      comm.PacketReadWriteCloser
	Builder *l0.Builder
	Timeout time.Duration

	responses chan *l0.Container
	done      chan struct{}
}

// NewConn creates a Conn and starts receiving responses.
func NewConn(name string, rw comm.PacketReadWriteCloser, limits l0.Limits) *Conn {
	c := &Conn{
		Name:      name,
		RW:        rw,
		Builder:   l0.NewBuilder(limits, 0),
		Timeout:   DefaultResponseTimeout,
		responses: make(chan *l0.Container, 16),
		done:      make(chan struct{}),
	}
	go c.receive()
	return c
}

// Dial connects to the target, which is either a device ref TYPE/ID
// reached over MQTT, tcp://HOST:PORT or ws://HOST:PORT/PATH.
func Dial(ctx context.Context, target, brokerURL string, limits l0.Limits) (*Conn, error) {
	var rw comm.PacketReadWriteCloser
	var err error
	switch {
	case strings.HasPrefix(target, "tcp://"):
		rw, err = stream.Dial(ctx, strings.TrimPrefix(target, "tcp://"))
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		rw, err = websocket.Dial(target)
	default:
		var ref l1.DeviceRef
		if ref, err = l1.ParseDeviceRef(target); err != nil {
			return nil, err
		}
		var connector *mqtt.Connector
		if connector, err = mqtt.NewConnector(brokerURL); err != nil {
			return nil, err
		}
		if rw, err = connector.Dial(ctx, ref); err != nil {
			connector.Close()
			return nil, err
		}
		rw = &connectorConn{PacketReadWriteCloser: rw, connector: connector}
	}
	if err != nil {
		return nil, err
	}
	return NewConn(target, rw, limits), nil
}

// Send segments a command and writes the packets.
func (c *Conn) Send(cmd l0.CommandID, payload []byte) error {
	for _, pkt := range c.Builder.Segment(cmd, payload) {
		glog.V(3).Infof("TX %s", pkt)
		if err := c.RW.WritePacket(pkt.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Abort sends the abort command.
func (c *Conn) Abort() error {
	return c.RW.WritePacket(c.Builder.Abort().Bytes())
}

// Request sends a command and waits for the response with cmd res.
func (c *Conn) Request(ctx context.Context, cmd, res l0.CommandID, payload []byte) (*l0.Container, error) {
	c.Drain()
	if err := c.Send(cmd, payload); err != nil {
		return nil, err
	}
	timeout := time.After(c.Timeout)
	for {
		select {
		case resp, ok := <-c.responses:
			if !ok {
				return nil, fmt.Errorf("%s disconnected", c.Name)
			}
			if resp.Type() == l0.PacketTypeCommand && resp.CommandHeader().Command == res {
				return resp, nil
			}
			glog.V(1).Infof("ignore %s", resp)
		case <-timeout:
			return nil, context.DeadlineExceeded
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Next waits for the next packet from the device.
func (c *Conn) Next(ctx context.Context) (*l0.Container, error) {
	select {
	case resp, ok := <-c.responses:
		if !ok {
			return nil, fmt.Errorf("%s disconnected", c.Name)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drain discards unsolicited responses.
func (c *Conn) Drain() (n int) {
	for {
		select {
		case _, ok := <-c.responses:
			if !ok {
				return
			}
			n++
		default:
			return
		}
	}
}

// Close closes the connection.
func (c *Conn) Close() error {
	err := c.RW.Close()
	<-c.done
	return err
}

func (c *Conn) receive() {
	defer close(c.done)
	defer close(c.responses)
	for {
		pkt, err := c.RW.ReadPacket()
		if err != nil {
			glog.V(1).Infof("%s: %v", c.Name, err)
			return
		}
		resp, err := l0.ContainerFrom(pkt)
		if err != nil {
			glog.Warningf("%s: %v", c.Name, err)
			continue
		}
		glog.V(3).Infof("RX %s", resp)
		select {
		case c.responses <- resp:
		default:
			glog.Warningf("%s: response dropped %s", c.Name, resp)
		}
	}
}

type connectorConn struct {
	comm.PacketReadWriteCloser
	connector *mqtt.Connector
}

func (c *connectorConn) Close() error {
	err := c.PacketReadWriteCloser.Close()
	c.connector.Close()
	return err
}
