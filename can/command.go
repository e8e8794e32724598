package can

import (
	"errors"
	"sync"
	"time"

	"github.com/albireox/jaeger-core/internal/canframe"
	"github.com/albireox/jaeger-core/internal/registry"
)

// Status is a Command's lifecycle state, per spec §4.3.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusDone
	StatusFailed
	StatusTimedOut
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s Status) IsDone() bool { return s >= StatusDone }

// Reply is a single positioner's answer to a Command, reassembled from one
// or more CAN frames.
type Reply struct {
	PositionerID   uint16
	CommandID      registry.CommandID
	CommandUID     uint16
	ResponseCode   uint8
	Data           []byte
	InterfaceIndex int
	BusIndex       int
}

// OK reports whether the firmware accepted the command for this positioner.
func (r Reply) OK() bool { return r.ResponseCode == canframe.ResponseOK }

// DefaultBroadcastQuiescence is the soft quiescence window used to complete
// a broadcast Command when the expected reply population is unknown (spec
// §4.3, §9 Open Question: the window is configurable, not hardcoded).
const DefaultBroadcastQuiescence = 500 * time.Millisecond

// ErrTimedOut is returned by Wait when a Command's deadline elapses before
// its completion predicate is satisfied.
var ErrTimedOut = errors.New("can: command timed out")

// ErrFailed is returned by Wait when a non-tolerant Command receives a reply
// with a non-OK response code.
var ErrFailed = errors.New("can: command failed")

// ErrCancelled is returned by Wait for a Command cancelled with
// Cancel(false); a silent Cancel(true) attaches no error.
var ErrCancelled = errors.New("can: command cancelled")

// Command is a single in-flight request, its expected replies, timeout,
// completion signal, status and reply buffer (spec §3, §4.3).
type Command struct {
	CommandID     registry.CommandID
	UID           uint16
	PositionerIDs []uint16
	Data          []byte
	Timeout       time.Duration
	Safe          bool
	Move          bool
	Bootloader    bool
	// Tolerant commands do not fail on a non-OK response code (used for
	// best-effort configuration steps during initialise).
	Tolerant bool
	// Quiescence overrides DefaultBroadcastQuiescence for this command.
	Quiescence time.Duration

	// NPositioners is the expected reply count for a broadcast command,
	// when known in advance (e.g. from a prior discovery pass).
	NPositioners *int

	mu       sync.Mutex
	status   Status
	replies  []Reply
	replied  map[uint16]bool
	done     chan struct{}
	err      error
	quiesce  *time.Timer
	deadline *time.Timer
	closeMu  sync.Once

	// onComplete, when set, runs exactly once as part of complete(), before
	// Done is closed —
	// timer-driven completions (timeout, broadcast quiescence) reach it
	// the same way a reply-driven completion does, so the dispatcher can
	// always retire the command from its correlation maps.
	onComplete func(*Command)
}

// Broadcast reports whether this Command targets positioner_id == 0.
func (c *Command) Broadcast() bool {
	return len(c.PositionerIDs) == 1 && c.PositionerIDs[0] == 0
}

// newCommand constructs a READY->RUNNING Command and arms its timers.
// tolerant/nPositioners/quiescence must be final before this call returns,
// since the quiescence timer below reads c.Quiescence while arming.
// onComplete, if non-nil, is set before either timer is armed so that a
// timer firing immediately still reaches it.
func newCommand(commandID registry.CommandID, uid uint16, pids []uint16, data []byte, timeout time.Duration, tolerant bool, nPositioners *int, quiescence time.Duration, onComplete func(*Command)) *Command {
	entry, _ := registry.Lookup(commandID)
	c := &Command{
		CommandID:     commandID,
		UID:           uid,
		PositionerIDs: append([]uint16(nil), pids...),
		Data:          data,
		Timeout:       timeout,
		Safe:          entry.Safe,
		Move:          entry.Move,
		Bootloader:    entry.Bootloader,
		Tolerant:      tolerant,
		NPositioners:  nPositioners,
		Quiescence:    quiescence,
		status:        StatusRunning,
		done:          make(chan struct{}),
		replied:       make(map[uint16]bool, len(pids)),
		onComplete:    onComplete,
	}

	if timeout > 0 {
		c.deadline = time.AfterFunc(timeout, func() { c.complete(StatusTimedOut, ErrTimedOut) })
	}
	if c.Broadcast() && c.NPositioners == nil {
		q := c.Quiescence
		if q == 0 {
			q = DefaultBroadcastQuiescence
		}
		c.quiesce = time.AfterFunc(q, func() { c.complete(StatusDone, nil) })
	}
	return c
}

// AddReply records a reply and evaluates the completion predicate (spec
// §4.3). It returns true if this reply caused the Command to complete.
func (c *Command) AddReply(r Reply) bool {
	c.mu.Lock()
	if c.status.IsDone() {
		c.mu.Unlock()
		return false
	}
	c.replies = append(c.replies, r)
	c.replied[r.PositionerID] = true
	failed := !r.OK() && !c.Tolerant
	nReplied := len(c.replied)
	broadcast := c.Broadcast()
	var nWant int
	haveWant := false
	if c.NPositioners != nil {
		nWant = *c.NPositioners
		haveWant = true
	} else if !broadcast {
		nWant = len(c.PositionerIDs)
		haveWant = true
	}
	c.mu.Unlock()

	if c.quiesce != nil {
		q := c.Quiescence
		if q == 0 {
			q = DefaultBroadcastQuiescence
		}
		c.quiesce.Reset(q)
	}

	if failed {
		c.complete(StatusFailed, ErrFailed)
		return true
	}
	if haveWant && nReplied >= nWant {
		c.complete(StatusDone, nil)
		return true
	}
	return false
}

// complete transitions the Command to a terminal status exactly once.
func (c *Command) complete(status Status, err error) {
	c.mu.Lock()
	if c.status.IsDone() {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.err = err
	c.mu.Unlock()

	c.closeMu.Do(func() {
		if c.deadline != nil {
			c.deadline.Stop()
		}
		if c.quiesce != nil {
			c.quiesce.Stop()
		}
		if c.onComplete != nil {
			c.onComplete(c)
		}
		close(c.done)
	})
}

// Cancel completes the command as CANCELLED. When silent is true no error
// is attached (used by internal housekeeping such as stop_trajectory).
func (c *Command) Cancel(silent bool) {
	if silent {
		c.complete(StatusCancelled, nil)
	} else {
		c.complete(StatusCancelled, ErrCancelled)
	}
}

// Status returns the Command's current lifecycle state.
func (c *Command) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Replies returns a snapshot of the replies received so far.
func (c *Command) Replies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reply, len(c.replies))
	copy(out, c.replies)
	return out
}

// Done returns a channel closed when the Command reaches a terminal state.
func (c *Command) Done() <-chan struct{} { return c.done }

// Wait blocks until the Command completes, and reports its terminal error,
// if any (nil for StatusDone and for a silent cancellation).
func (c *Command) Wait() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
