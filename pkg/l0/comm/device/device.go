package device

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

// Responder queues a single-packet response, usually the comm.Worker.
type Responder interface {
	Respond(cmd comm.CommandID, payload []byte) error
}

// Device holds the device status and serves the command set.
// Handlers run from the worker, status setters may be called from
// anywhere.
type Device struct {
	Responder Responder

	version     Version
	serial      Serial
	toggles     Toggle
	cameraClock uint32
	stats       Statistics
	video       Classification
	audio       Classification

	lock sync.RWMutex
}

// New creates a Device.
func New(version Version, serial Serial) *Device {
	return &Device{version: version, serial: serial, toggles: DefaultToggles}
}

// Register installs the command handlers.
func (d *Device) Register(mux *comm.CommandMux) *comm.CommandMux {
	mux.HandleFunc(CmdGetVersion, d.handleGet(d.SendVersion)).
		HandleFunc(CmdGetSerial, d.handleGet(d.SendSerial)).
		HandleFunc(CmdGetStatistics, d.handleGet(d.SendStatistics)).
		HandleFunc(CmdGetVideoClassification, d.handleGet(d.SendVideoClassification)).
		HandleFunc(CmdGetAudioClassification, d.handleGet(d.SendAudioClassification)).
		HandleFunc(CmdSetCameraClock, d.handleCameraClock)
	for _, def := range toggles {
		mux.HandleFunc(def.enable, d.handleToggle(def.toggle, true))
		mux.HandleFunc(def.disable, d.handleToggle(def.toggle, false))
	}
	return mux
}

// Toggles returns the current feature flags.
func (d *Device) Toggles() Toggle {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.toggles
}

// Enabled tells whether the toggle is on.
func (d *Device) Enabled(t Toggle) bool {
	return d.Toggles()&t != 0
}

// SetToggle switches a toggle.
func (d *Device) SetToggle(t Toggle, on bool) {
	d.lock.Lock()
	if on {
		d.toggles |= t
	} else {
		d.toggles &^= t
	}
	d.lock.Unlock()
}

// CameraClock returns the configured camera clock in Hz.
func (d *Device) CameraClock() uint32 {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.cameraClock
}

// Statistics returns the statistics.
func (d *Device) Statistics() Statistics {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.stats
}

// UpdateStatistics replaces the statistics.
func (d *Device) UpdateStatistics(stats Statistics) {
	d.lock.Lock()
	d.stats = stats
	d.lock.Unlock()
}

// UpdateVideoClassification replaces the latest video result.
func (d *Device) UpdateVideoClassification(c Classification) {
	d.lock.Lock()
	d.video = c
	d.lock.Unlock()
}

// UpdateAudioClassification replaces the latest audio result.
func (d *Device) UpdateAudioClassification(c Classification) {
	d.lock.Lock()
	d.audio = c
	d.lock.Unlock()
}

// SendVersion responds with the version.
func (d *Device) SendVersion() error {
	d.lock.RLock()
	v := d.version
	d.lock.RUnlock()
	return d.send(CmdGetVersionRes, &v)
}

// SendSerial responds with the serial number.
func (d *Device) SendSerial() error {
	d.lock.RLock()
	s := d.serial
	d.lock.RUnlock()
	return d.send(CmdGetSerialRes, &s)
}

// SendStatistics responds with the statistics.
func (d *Device) SendStatistics() error {
	stats := d.Statistics()
	return d.send(CmdGetStatisticsRes, &stats)
}

// SendVideoClassification responds with the latest video result.
func (d *Device) SendVideoClassification() error {
	d.lock.RLock()
	c := d.video
	d.lock.RUnlock()
	return d.send(CmdGetVideoClassificationRes, &c)
}

// SendAudioClassification responds with the latest audio result.
func (d *Device) SendAudioClassification() error {
	d.lock.RLock()
	c := d.audio
	d.lock.RUnlock()
	return d.send(CmdGetAudioClassificationRes, &c)
}

func (d *Device) send(cmd comm.CommandID, v interface{}) error {
	if d.Responder == nil {
		return fmt.Errorf("%s: no responder", CommandName(cmd))
	}
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	if err := d.Responder.Respond(cmd, payload); err != nil {
		return fmt.Errorf("%s: %w", CommandName(cmd), err)
	}
	return nil
}

func (d *Device) handleGet(send func() error) comm.DispatchFunc {
	return func(ctx context.Context, cmd comm.CommandID, payload []byte) error {
		return send()
	}
}

func (d *Device) handleToggle(t Toggle, on bool) comm.DispatchFunc {
	return func(ctx context.Context, cmd comm.CommandID, payload []byte) error {
		d.SetToggle(t, on)
		glog.Infof("%s: %s", CommandName(cmd), d.Toggles())
		return nil
	}
}

func (d *Device) handleCameraClock(ctx context.Context, cmd comm.CommandID, payload []byte) error {
	if len(payload) != 4 {
		return fmt.Errorf("%s: invalid payload size %d", CommandName(cmd), len(payload))
	}
	clock := binary.LittleEndian.Uint32(payload)
	d.lock.Lock()
	d.cameraClock = clock
	d.lock.Unlock()
	glog.Infof("camera clock set to %d Hz", clock)
	return nil
}
