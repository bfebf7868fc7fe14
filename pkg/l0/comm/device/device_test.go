package device

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

type testEnv struct {
	t      *testing.T
	queue  *comm.ChanQueue
	worker *comm.Worker
	dev    *Device
	host   *comm.Builder
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		t:     t,
		queue: comm.NewChanQueue(4),
		dev:   New(Version{Major: 1, Minor: 2, Build: 345}, SerialFrom("CAM-0001")),
		host:  comm.NewBuilder(comm.Limits{}, 0),
	}
	env.worker = comm.NewWorker(env.queue, env.dev.Register(comm.NewCommandMux()), comm.Limits{})
	env.dev.Responder = env.worker
	return env
}

func (e *testEnv) send(cmd comm.CommandID, payload []byte) {
	for _, c := range e.host.Segment(cmd, payload) {
		require.NoError(e.t, e.queue.EnqueueInbound(c))
		require.NoError(e.t, e.worker.Step(context.Background()))
	}
}

func (e *testEnv) response(cmd comm.CommandID, v interface{}) {
	c, err := e.queue.DequeueOutbound()
	require.NoError(e.t, err)
	require.Equal(e.t, cmd, c.CommandHeader().Command)
	require.NoError(e.t, Decode(c.PayloadSlice(), v))
}

func TestDeviceToggles(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, DefaultToggles, env.dev.Toggles())

	env.send(CmdDisableLCD, nil)
	assert.False(t, env.dev.Enabled(ToggleLCD))
	env.send(CmdEnableVFlip, nil)
	assert.True(t, env.dev.Enabled(ToggleVFlip))
	env.send(CmdEnableLCD, nil)
	assert.Equal(t, DefaultToggles|ToggleVFlip, env.dev.Toggles())

	_, err := env.queue.DequeueOutbound()
	assert.ErrorIs(t, err, comm.ErrQueueEmpty, "toggles don't respond")
}

func TestDeviceGetVersionAndSerial(t *testing.T) {
	env := newTestEnv(t)
	env.send(CmdGetVersion, nil)
	var v Version
	env.response(CmdGetVersionRes, &v)
	assert.Equal(t, "v1.2.345", v.String())

	env.send(CmdGetSerial, nil)
	var s Serial
	env.response(CmdGetSerialRes, &s)
	assert.Equal(t, "CAM-0001", s.String())
}

func TestDeviceGetStatistics(t *testing.T) {
	env := newTestEnv(t)
	stats := Statistics{VideoCNNDurationUs: 1200, LCDFps: 25.5, BatterySOC: 80, Uptime: 3600}
	env.dev.UpdateStatistics(stats)
	env.send(CmdGetStatistics, nil)
	var got Statistics
	env.response(CmdGetStatisticsRes, &got)
	assert.Equal(t, stats, got)
}

func TestDeviceGetClassification(t *testing.T) {
	env := newTestEnv(t)
	env.dev.UpdateVideoClassification(NewClassification(2, "person", 0.9))
	env.dev.UpdateAudioClassification(NewClassification(7, "yes", 0.75))

	env.send(CmdGetVideoClassification, nil)
	var video Classification
	env.response(CmdGetVideoClassificationRes, &video)
	assert.Equal(t, "person", video.LabelString())
	assert.Equal(t, uint8(2), video.Class)

	env.send(CmdGetAudioClassification, nil)
	var audio Classification
	env.response(CmdGetAudioClassificationRes, &audio)
	assert.Equal(t, "yes(7) 0.75", audio.String())
}

func TestDeviceCameraClock(t *testing.T) {
	env := newTestEnv(t)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 15000000)
	env.send(CmdSetCameraClock, payload)
	assert.Equal(t, uint32(15000000), env.dev.CameraClock())

	err := env.dev.handleCameraClock(context.Background(), CmdSetCameraClock, []byte{1})
	assert.Error(t, err)
}

func TestDeviceSendBusy(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.host.CommandPacket(CmdSetCameraClock, 4, []byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, env.queue.EnqueueInbound(c))
	require.NoError(t, env.worker.Step(context.Background()))
	assert.ErrorIs(t, env.dev.SendStatistics(), comm.ErrBusy)

	assert.Error(t, New(Version{}, Serial{}).SendVersion(), "no responder")
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, "abort", CommandName(CmdAbort))
	assert.Equal(t, "enable-vflip", CommandName(CmdEnableVFlip))
	assert.Equal(t, "cmd-200", CommandName(200))
	cmd, ok := CommandByName("get-statistics")
	assert.True(t, ok)
	assert.Equal(t, CmdGetStatistics, cmd)

	cmd, err := ToggleCommand("lcd", false)
	require.NoError(t, err)
	assert.Equal(t, CmdDisableLCD, cmd)
	_, err = ToggleCommand("nope", true)
	assert.Error(t, err)
	assert.Equal(t, "video,cnn", (ToggleVideo | ToggleCNN).String())
	assert.Equal(t, "none", Toggle(0).String())
	assert.Len(t, ToggleNames(), 9)
}

func TestDecodeSizeMismatch(t *testing.T) {
	var v Version
	assert.Error(t, Decode([]byte{1, 2}, &v))
}
