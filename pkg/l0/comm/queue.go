package comm

// Transport is the transport queue as seen from the worker.
// Both operations never block.
type Transport interface {
	// DequeueInbound takes one received container if any.
	DequeueInbound() (*Container, bool)
	// EnqueueOutbound hands a container to the transport, ErrQueueFull
	// if saturated.
	EnqueueOutbound(*Container) error
}

// DefaultQueueCapacity is the default depth of each direction.
const DefaultQueueCapacity = 16

// ChanQueue is a bounded transport queue.
// Each direction is a single-producer/single-consumer handoff:
// the radio side enqueues inbound and drains outbound, the worker
// does the opposite.
type ChanQueue struct {
	rx chan *Container
	tx chan *Container
}

// NewChanQueue creates a ChanQueue, capacity applies to each direction.
func NewChanQueue(capacity int) *ChanQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ChanQueue{
		rx: make(chan *Container, capacity),
		tx: make(chan *Container, capacity),
	}
}

// EnqueueInbound is called from the radio side when a packet is received.
func (q *ChanQueue) EnqueueInbound(c *Container) error {
	select {
	case q.rx <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// DequeueInbound implements Transport.
func (q *ChanQueue) DequeueInbound() (*Container, bool) {
	select {
	case c := <-q.rx:
		return c, true
	default:
		return nil, false
	}
}

// EnqueueOutbound implements Transport.
func (q *ChanQueue) EnqueueOutbound(c *Container) error {
	select {
	case q.tx <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// DequeueOutbound is called from the radio side to take the next
// container to send, ErrQueueEmpty if nothing is queued.
func (q *ChanQueue) DequeueOutbound() (*Container, error) {
	select {
	case c := <-q.tx:
		return c, nil
	default:
		return nil, ErrQueueEmpty
	}
}

// Outbound exposes the outbound direction for the radio side to wait on.
func (q *ChanQueue) Outbound() <-chan *Container {
	return q.tx
}

// InboundLen returns the number of containers waiting for the worker.
func (q *ChanQueue) InboundLen() int {
	return len(q.rx)
}
