package comm

import (
	"context"
	"sync"
)

// CommandAbort is the reserved command id which unconditionally
// resets the assembly state.
const CommandAbort CommandID = 0

// Dispatcher is invoked once a command's full payload has been reassembled.
// It's called synchronously from Worker.Step and must not block.
// The payload is only valid during the call.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd CommandID, payload []byte) error
}

// DispatchFunc is func type of Dispatcher.
type DispatchFunc func(ctx context.Context, cmd CommandID, payload []byte) error

// Dispatch implements Dispatcher.
func (f DispatchFunc) Dispatch(ctx context.Context, cmd CommandID, payload []byte) error {
	return f(ctx, cmd, payload)
}

// CommandMux routes commands to Dispatchers by command id.
type CommandMux struct {
	// Fallback handles commands without a registered handler.
	Fallback Dispatcher

	handlers map[CommandID]Dispatcher
	lock     sync.RWMutex
}

// NewCommandMux creates a CommandMux.
func NewCommandMux() *CommandMux {
	return &CommandMux{handlers: make(map[CommandID]Dispatcher)}
}

// Handle registers the handler for a command.
func (m *CommandMux) Handle(cmd CommandID, d Dispatcher) *CommandMux {
	m.lock.Lock()
	if m.handlers == nil {
		m.handlers = make(map[CommandID]Dispatcher)
	}
	m.handlers[cmd] = d
	m.lock.Unlock()
	return m
}

// HandleFunc registers the handler func for a command.
func (m *CommandMux) HandleFunc(cmd CommandID, fn func(context.Context, CommandID, []byte) error) *CommandMux {
	return m.Handle(cmd, DispatchFunc(fn))
}

// Dispatch implements Dispatcher.
func (m *CommandMux) Dispatch(ctx context.Context, cmd CommandID, payload []byte) error {
	m.lock.RLock()
	d := m.handlers[cmd]
	m.lock.RUnlock()
	if d == nil {
		d = m.Fallback
	}
	if d == nil {
		return ErrUnknownCommand
	}
	return d.Dispatch(ctx, cmd, payload)
}

// Dispatchers invokes all Dispatchers in order, e.g. the device handlers
// followed by an event bridge. All are called even if some fail.
type Dispatchers []Dispatcher

// Dispatch implements Dispatcher.
func (ds Dispatchers) Dispatch(ctx context.Context, cmd CommandID, payload []byte) error {
	var first error
	for _, d := range ds {
		if err := d.Dispatch(ctx, cmd, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
