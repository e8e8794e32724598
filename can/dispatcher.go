package can

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albireox/jaeger-core/internal/canframe"
	"github.com/albireox/jaeger-core/internal/registry"
	"github.com/albireox/jaeger-core/internal/telemetry"
)

// outbound is one frame queued for transmission on a specific interface/bus.
type outbound struct {
	ifaceIdx int
	frame    RawFrame
}

// route is a resolved (interface, bus) pair, cached per positioner id once
// discovered by a broadcast GET_ID pass (spec.md §4.4 "positioner_to_bus").
type route struct {
	ifaceIdx int
	busIdx   int
}

// SetRoute records the interface/bus a positioner was last heard from on.
// FPS discovery calls this once a reply's InterfaceIndex/BusIndex is known.
func (d *CANDispatcher) SetRoute(positionerID uint16, ifaceIdx, busIdx int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.routes == nil {
		d.routes = make(map[uint16]route)
	}
	d.routes[positionerID] = route{ifaceIdx, busIdx}
}

// ClearRoutes discards all cached positioner_to_bus entries, used at the
// start of FPS.Initialise's rediscovery pass.
func (d *CANDispatcher) ClearRoutes() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes = nil
}

// runningKey correlates an inbound Frame back to the Command that is
// waiting for it, the same way the teacher correlates an inbound apdu back
// to its Outbound by sequence number.
type runningKey struct {
	uid       uint16
	commandID registry.CommandID
}

// CANDispatcher owns a set of BusInterfaces, serializes outbound Commands
// onto them and demultiplexes inbound frames back to the Command waiting on
// each reply (spec.md §4.4). Its goroutine layout mirrors the teacher's
// session/tcp.go recvLoop/sendLoop/run split, generalized to N interfaces.
type CANDispatcher struct {
	ifaces []BusInterface

	sendCh   chan outbound
	sendQuit chan struct{}

	mu        sync.Mutex
	running   map[runningKey]*Command
	reassmblr map[runningKey]map[uint16]*canframe.Reassembler // per positioner
	routes    map[uint16]route                                // positioner_to_bus
	closed    bool

	nextUID uint32 // atomic counter, wraps mod 1<<uidBits on the wire

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *telemetry.Metrics
}

// NewCANDispatcher starts one send goroutine and one receive goroutine per
// interface.
// metrics may be nil, in which case metric updates are no-ops.
func NewCANDispatcher(ifaces []BusInterface, metrics *telemetry.Metrics) *CANDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &CANDispatcher{
		ifaces:    ifaces,
		sendCh:    make(chan outbound, 256),
		sendQuit:  make(chan struct{}),
		running:   make(map[runningKey]*Command),
		reassmblr: make(map[runningKey]map[uint16]*canframe.Reassembler),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   metrics,
	}

	d.wg.Add(1)
	go d.sendLoop()
	for i, iface := range ifaces {
		d.wg.Add(1)
		go d.recvLoop(i, iface)
	}
	return d
}

// Close cancels the dispatcher and closes every owned interface. Any
// Commands still running are cancelled silently. Calling Close again
// returns nil and does nothing.
func (d *CANDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	close(d.sendCh)
	<-d.sendQuit

	var firstErr error
	for _, iface := range d.ifaces {
		if err := iface.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.wg.Wait()

	d.mu.Lock()
	running := make([]*Command, 0, len(d.running))
	for _, c := range d.running {
		running = append(running, c)
	}
	d.mu.Unlock()
	for _, c := range running {
		c.Cancel(true)
	}
	return firstErr
}

// sendLoop drains sendCh onto each frame's assigned interface.
func (d *CANDispatcher) sendLoop() {
	defer func() {
		close(d.sendQuit)
		d.wg.Done()
	}()

	for ob := range d.sendCh {
		if ob.ifaceIdx < 0 || ob.ifaceIdx >= len(d.ifaces) {
			telemetry.Errorf("can: dropping frame for unknown interface index %d", ob.ifaceIdx)
			continue
		}
		if err := d.ifaces[ob.ifaceIdx].Send(d.ctx, ob.frame); err != nil {
			telemetry.Errorf("can: send on %s failed: %v", d.ifaces[ob.ifaceIdx].Name(), err)
		}
	}
}

// recvLoop demultiplexes frames arriving on one interface back to the
// Command whose (uid, command_id) key matches.
func (d *CANDispatcher) recvLoop(ifaceIdx int, iface BusInterface) {
	defer d.wg.Done()

	for raw := range iface.Recv() {
		frame, err := canframe.Decode(raw.ArbitrationID, raw.Data)
		if err != nil {
			telemetry.Errorf("can: decode error on %s: %v", iface.Name(), err)
			continue
		}
		d.deliver(ifaceIdx, raw.Bus, frame)
	}
}

// deliver reassembles frame (if needed) and hands the logical reply to the
// Command correlated by (uid, command_id).
func (d *CANDispatcher) deliver(ifaceIdx, busIdx int, frame canframe.Frame) {
	key := runningKey{uid: uint16(frame.UID), commandID: frame.CommandID}

	d.mu.Lock()
	cmd, ok := d.running[key]
	if !ok {
		d.mu.Unlock()
		telemetry.Debugf("can: reply for unknown command uid=%d id=%s positioner=%d discarded",
			frame.UID, frame.CommandID, frame.PositionerID)
		return
	}
	perPositioner := d.reassmblr[key]
	if perPositioner == nil {
		perPositioner = make(map[uint16]*canframe.Reassembler)
		d.reassmblr[key] = perPositioner
	}
	reassembler := perPositioner[frame.PositionerID]
	if reassembler == nil {
		reassembler = &canframe.Reassembler{}
		perPositioner[frame.PositionerID] = reassembler
	}
	d.mu.Unlock()

	payload, complete := reassembler.Add(frame)
	if !complete {
		return
	}

	reply := Reply{
		PositionerID:   frame.PositionerID,
		CommandID:      frame.CommandID,
		CommandUID:     uint16(frame.UID),
		ResponseCode:   frame.ResponseCode,
		Data:           payload,
		InterfaceIndex: ifaceIdx,
		BusIndex:       busIdx,
	}
	// AddReply's own completion path (including the failed/done branches)
	// calls Command.complete, which invokes the onComplete callback wired
	// in Send and retires the command via finish below — same as a
	// timer-driven completion (timeout, broadcast quiescence).
	cmd.AddReply(reply)
}

// finish retires a completed command from the correlation maps. It runs
// exactly once per command, from Command.complete's onComplete callback,
// regardless of whether the command completed via a reply, a timeout or
// broadcast quiescence, or cancellation.
func (d *CANDispatcher) finish(key runningKey, cmd *Command) {
	d.mu.Lock()
	delete(d.running, key)
	delete(d.reassmblr, key)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetCommandsInflight(d.inflightCount())
		d.metrics.IncCommandsTotal(cmd.Status().String())
	}
}

func (d *CANDispatcher) inflightCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.running)
}

// CancelMoveCommands cancels every tracked command whose Move flag is set
// (spec.md §4.6.5: stop_trajectory "cancels all in-flight tracked commands
// whose move_command is true"). Cancellation is silent — the positioner is
// being stopped deliberately, not failing.
func (d *CANDispatcher) CancelMoveCommands() {
	d.mu.Lock()
	moving := make([]*Command, 0, len(d.running))
	for _, c := range d.running {
		if c.Move {
			moving = append(moving, c)
		}
	}
	d.mu.Unlock()

	for _, c := range moving {
		c.Cancel(true)
	}
}

// SendOptions configures one Send call.
type SendOptions struct {
	// InterfaceIdx selects which owned BusInterface carries the frame(s).
	// Defaults to 0.
	InterfaceIdx int
	// BusIdx selects the logical sub-bus on a multiplexing interface.
	BusIdx int
	// Now, when true, writes the frame directly without registering a
	// Command or waiting for any reply (fire-and-forget, used for
	// SEND_TRAJECTORY_ABORT on shutdown signals per spec.md §6).
	Now bool
	// Tolerant, NPositioners and Quiescence are forwarded to the Command;
	// see their doc comments on Command.
	Tolerant     bool
	NPositioners *int
	Quiescence   time.Duration
}

// Send builds and transmits a Command addressed to positionerIDs (use
// []uint16{0} for broadcast), returning the Command handle the caller waits
// on via Wait/Done. If opts.Now is set, the frame is written immediately,
// bypassing correlation and the running map entirely, and nil is returned.
func (d *CANDispatcher) Send(ctx context.Context, commandID registry.CommandID, positionerIDs []uint16, data []byte, timeout time.Duration, opts SendOptions) (*Command, error) {
	entry, ok := registry.Lookup(commandID)
	if !ok {
		return nil, fmt.Errorf("can: unknown command id %d", commandID)
	}
	broadcast := len(positionerIDs) == 1 && positionerIDs[0] == 0
	if broadcast && !entry.Broadcastable {
		return nil, fmt.Errorf("can: command %s is not broadcastable", commandID)
	}
	if len(data) > canframe.MaxPayloadBytes-1 {
		return nil, fmt.Errorf("can: payload of %d bytes exceeds single-frame capacity; chunk before calling Send", len(data))
	}

	uid := uint16(atomic.AddUint32(&d.nextUID, 1) & 0xff)

	if opts.Now {
		// Fire-and-forget: write directly to the owned interface(s),
		// bypassing sendCh/the running map entirely (spec.md §4.4 step 4).
		for _, ob := range d.encodeFanout(positionerIDs[0], commandID, uid, data, opts) {
			if ob.ifaceIdx < 0 || ob.ifaceIdx >= len(d.ifaces) {
				telemetry.Errorf("can: dropping frame for unknown interface index %d", ob.ifaceIdx)
				continue
			}
			if err := d.ifaces[ob.ifaceIdx].Send(ctx, ob.frame); err != nil {
				telemetry.Errorf("can: send on %s failed: %v", d.ifaces[ob.ifaceIdx].Name(), err)
			}
		}
		return nil, nil
	}

	key := runningKey{uid: uid, commandID: commandID}
	cmd := newCommand(commandID, uid, positionerIDs, data, timeout, opts.Tolerant, opts.NPositioners, opts.Quiescence,
		func(c *Command) { d.finish(key, c) })

	d.mu.Lock()
	d.running[key] = cmd
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.SetCommandsInflight(d.inflightCount())
	}

	for _, pid := range positionerIDs {
		for _, ob := range d.encodeFanout(pid, commandID, uid, data, opts) {
			select {
			case d.sendCh <- ob:
			case <-ctx.Done():
				cmd.Cancel(true)
				return nil, ctx.Err()
			case <-d.ctx.Done():
				cmd.Cancel(true)
				return nil, d.ctx.Err()
			}
		}
	}

	return cmd, nil
}

// encodeFanout resolves which interface(s)/bus(es) positionerID's frame
// should be written to (spec.md §4.4 "resolve interface/bus: if
// positioner_to_bus[pid] known, use it; else fan-out to all interfaces/
// buses"), and encodes one frame per destination.
func (d *CANDispatcher) encodeFanout(positionerID uint16, commandID registry.CommandID, uid uint16, data []byte, opts SendOptions) []outbound {
	destinations := d.resolveRoutes(positionerID, opts)
	obs := make([]outbound, 0, len(destinations))
	for _, dest := range destinations {
		arbID, frame, err := canframe.Encode(positionerID, commandID, uint8(uid), 0, true, data)
		if err != nil {
			telemetry.Errorf("can: encode failed for positioner %d: %v", positionerID, err)
			continue
		}
		obs = append(obs, outbound{ifaceIdx: dest.ifaceIdx, frame: RawFrame{ArbitrationID: arbID, Data: frame, Bus: dest.busIdx}})
	}
	return obs
}

func (d *CANDispatcher) resolveRoutes(positionerID uint16, opts SendOptions) []route {
	if positionerID == 0 {
		d.mu.Lock()
		n := len(d.ifaces)
		d.mu.Unlock()
		if n == 0 {
			return []route{{opts.InterfaceIdx, opts.BusIdx}}
		}
		routes := make([]route, n)
		for i := range routes {
			routes[i] = route{i, opts.BusIdx}
		}
		return routes
	}

	d.mu.Lock()
	r, ok := d.routes[positionerID]
	d.mu.Unlock()
	if ok {
		return []route{r}
	}
	return []route{{opts.InterfaceIdx, opts.BusIdx}}
}
