package can

import (
	"context"
	"fmt"
	"sync"
)

// RawFrame is one physical CAN datagram as seen at the BusInterface
// boundary, before canframe.Decode has interpreted the arbitration id.
type RawFrame struct {
	ArbitrationID uint32
	Data          []byte
	// Bus is the logical sub-bus index the frame arrived on (or should be
	// sent on), for interfaces that multiplex several physical CAN buses
	// behind one BusInterface.
	Bus int
}

// BusInterface abstracts one physical or virtual CAN transport. A
// CANDispatcher owns one or more BusInterfaces and fans traffic across them
// by the interface/bus indices attached to each Command.
type BusInterface interface {
	// Name identifies the interface for logging (e.g. "can0", "virtual").
	Name() string
	// Buses returns the number of logical sub-buses this interface
	// multiplexes. Most real interfaces return 1.
	Buses() int
	// Send transmits one frame on the given logical bus.
	Send(ctx context.Context, frame RawFrame) error
	// Recv returns the channel of frames received from the transport. The
	// channel is closed when the interface is closed.
	Recv() <-chan RawFrame
	// Close releases the underlying transport. Recv's channel is closed.
	Close() error
}

// VirtualBus is an in-memory BusInterface emulating a configurable number of
// positioners without any real CAN hardware (SPEC_FULL.md §4.9). It is the
// CAN-domain equivalent of the teacher's in-memory loopback transport used
// by its own session tests.
type VirtualBus struct {
	name string

	mu      sync.Mutex
	closed  bool
	recv    chan RawFrame
	replier func(frame RawFrame) []RawFrame
}

// NewVirtualBus constructs a VirtualBus. replier is invoked synchronously
// for every Send and its returned frames are queued for delivery via Recv;
// callers typically build replier from a set of simulated positioners.
func NewVirtualBus(name string, replier func(frame RawFrame) []RawFrame) *VirtualBus {
	return &VirtualBus{
		name:    name,
		recv:    make(chan RawFrame, 256),
		replier: replier,
	}
}

func (b *VirtualBus) Name() string { return b.name }

func (b *VirtualBus) Buses() int { return 1 }

// Send hands the frame to the replier callback and queues any resulting
// reply frames for delivery on Recv.
func (b *VirtualBus) Send(ctx context.Context, frame RawFrame) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("can: virtual bus %q is closed", b.name)
	}
	replier := b.replier
	b.mu.Unlock()

	if replier == nil {
		return nil
	}
	for _, reply := range replier(frame) {
		select {
		case b.recv <- reply:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *VirtualBus) Recv() <-chan RawFrame { return b.recv }

func (b *VirtualBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.recv)
	return nil
}

// Inject delivers a frame on Recv as if it had arrived from the wire,
// bypassing Send/replier. Used by tests to simulate unsolicited traffic.
func (b *VirtualBus) Inject(frame RawFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.recv <- frame
}
