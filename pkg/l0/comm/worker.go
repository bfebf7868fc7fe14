package comm

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
)

// Worker owns the protocol state: the assembly buffer and the outbound
// sequence counter. It's driven by repeatedly calling Step from a single
// context, usually as a Controller of a framework.Loop.
type Worker struct {
	Transport   Transport
	Diagnostics Diagnostics

	// StallTimeout resets an assembly that received nothing for this long.
	// Zero disables it, then an abandoned assembly blocks until an abort
	// command or a completion arrives.
	StallTimeout time.Duration
	// Now is the clock, defaults to time.Now.
	Now func() time.Time

	assembler Assembler
	builder   Builder
	pending   *Container
	lastRx    time.Time
}

// NewWorker creates a Worker.
func NewWorker(t Transport, d Dispatcher, limits Limits) *Worker {
	w := &Worker{Transport: t}
	w.assembler.Init(limits)
	w.assembler.Dispatcher = d
	w.builder.Limits = limits
	return w
}

// WithDiagnostics sets the diagnostics sink.
func (w *Worker) WithDiagnostics(d Diagnostics) *Worker {
	w.Diagnostics = d
	w.assembler.Diagnostics = d
	return w
}

// Assembler exposes the assembler.
func (w *Worker) Assembler() *Assembler {
	return &w.assembler
}

// State gets the assembly state.
func (w *Worker) State() State {
	return w.assembler.State()
}

// Pending indicates a response is waiting for the transport.
func (w *Worker) Pending() bool {
	return w.pending != nil
}

// Reset returns to idle and discards the pending response.
func (w *Worker) Reset() {
	w.assembler.Reset()
	w.pending = nil
}

// Respond builds a single-packet command and parks it until the next Step
// hands it to the transport. Only one response can be pending and none can
// be queued while a command is being assembled.
func (w *Worker) Respond(cmd CommandID, payload []byte) error {
	if w.assembler.State() != StateIdle {
		return ErrBusy
	}
	if w.pending != nil {
		return ErrBusy
	}
	c, err := w.builder.BuildCommandPacket(cmd, payload)
	if err != nil {
		return err
	}
	w.pending = c
	return nil
}

// Step processes at most one inbound container and tries to hand the
// pending response to the transport. It never blocks. The returned error
// is already reported to diagnostics.
func (w *Worker) Step(ctx context.Context) error {
	if w.assembler.Diagnostics == nil {
		w.assembler.Diagnostics = w.Diagnostics
	}
	var errs fx.AggregatedError
	errs.Add(w.checkStall())
	if c, ok := w.Transport.DequeueInbound(); ok {
		w.lastRx = w.now()
		if err := w.assembler.Process(ctx, c); err != nil {
			w.diag().Rejected(err)
			errs.Add(err)
		}
	}
	errs.Add(w.handleTx())
	return errs.Aggregate()
}

// Control implements framework.Controller.
func (w *Worker) Control(cc fx.ControlContext) error {
	w.Step(cc.Context())
	if q, ok := w.Transport.(interface{ InboundLen() int }); ok && q.InboundLen() > 0 {
		cc.TriggerNext()
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (w *Worker) AddToLoop(l *fx.Loop) {
	l.AddController(w)
}

func (w *Worker) handleTx() error {
	if w.pending == nil {
		return nil
	}
	if err := w.Transport.EnqueueOutbound(w.pending); err != nil {
		// kept for next step.
		w.diag().Saturated(Outbound)
		return err
	}
	w.diag().Sent(w.pending)
	w.pending = nil
	return nil
}

func (w *Worker) checkStall() error {
	if w.StallTimeout <= 0 || w.assembler.State() != StateAssembling {
		return nil
	}
	if idle := w.now().Sub(w.lastRx); idle > w.StallTimeout {
		buf := w.assembler.Buffer()
		err := &RejectError{
			Err:     ErrStalled,
			Seq:     w.assembler.ExpectedSeq(),
			Type:    PacketTypePayload,
			Command: buf.Command,
			State:   buf.State,
		}
		glog.Warningf("command %d stalled at %d/%d bytes for %s, reset",
			buf.Command, buf.ReceivedSize, buf.TotalSize, idle)
		w.assembler.Reset()
		w.diag().Rejected(err)
		return err
	}
	return nil
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) diag() Diagnostics {
	if d := w.Diagnostics; d != nil {
		return d
	}
	return LogDiagnostics{}
}
