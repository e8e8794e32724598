package can

import (
	"encoding/binary"
	"sync"

	"github.com/albireox/jaeger-core/internal/canframe"
	"github.com/albireox/jaeger-core/internal/registry"
)

// VirtualFleet simulates a population of positioners answering CAN requests
// without any hardware, for use as a VirtualBus replier (SPEC_FULL.md §4.9,
// the Go equivalent of `--virtual`/`testing.VirtualFPS` in the original
// implementation). It is intentionally simplistic: commands that cause
// motion complete instantaneously rather than modelling a real trajectory.
type VirtualFleet struct {
	mu          sync.Mutex
	positioners map[uint16]*virtualPositioner
	order       []uint16
}

type virtualPositioner struct {
	alpha, beta     float64
	status          uint32
	major           uint8
	minor           uint8
	patch           uint8
	collisionLocked bool
}

// NewVirtualFleet builds a simulated fleet of n positioners, ids 1..n.
func NewVirtualFleet(n int) *VirtualFleet {
	// Every simulated positioner starts initialised and at rest:
	// SYSTEM_INITIALIZED (bit 0) plus DISPLACEMENT_COMPLETED (bit 12).
	const idleStatus = 1<<0 | 1<<12
	fleet := &VirtualFleet{positioners: make(map[uint16]*virtualPositioner, n)}
	for i := 1; i <= n; i++ {
		id := uint16(i)
		fleet.positioners[id] = &virtualPositioner{status: idleStatus, major: 1, minor: 0, patch: 0}
		fleet.order = append(fleet.order, id)
	}
	return fleet
}

// Reply implements the replier signature NewVirtualBus expects: it decodes
// the outbound frame, mutates simulated state and returns the resulting
// wire-level reply frame(s), including broadcast fan-out to every known
// positioner.
func (v *VirtualFleet) Reply(frame RawFrame) []RawFrame {
	req, err := canframe.Decode(frame.ArbitrationID, frame.Data)
	if err != nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	targets := []uint16{req.PositionerID}
	if req.PositionerID == 0 {
		targets = append([]uint16(nil), v.order...)
	}

	var out []RawFrame
	for _, id := range targets {
		p, ok := v.positioners[id]
		if !ok {
			continue
		}
		out = append(out, v.reply(id, p, req)...)
	}
	return out
}

func (v *VirtualFleet) reply(id uint16, p *virtualPositioner, req canframe.Frame) []RawFrame {
	switch req.CommandID {
	case registry.GetID:
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.GetFirmwareVersion:
		return []RawFrame{v.frame1(id, req, []byte{p.major, p.minor, p.patch})}

	case registry.GetStatus:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, p.status)
		return []RawFrame{v.frame1(id, req, b)}

	case registry.GetActualPosition:
		alphaBytes := make([]byte, 4)
		betaBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(alphaBytes, uint32(int32(p.alpha*angleScaleVirtual)))
		binary.BigEndian.PutUint32(betaBytes, uint32(int32(p.beta*angleScaleVirtual)))
		arbID, d0, _ := canframe.Encode(id, req.CommandID, req.UID, 0, false, alphaBytes)
		_, d1, _ := canframe.Encode(id, req.CommandID, req.UID, 1, true, betaBytes)
		return []RawFrame{
			{ArbitrationID: arbID, Data: d0},
			{ArbitrationID: arbID, Data: d1},
		}

	case registry.SetActualPosition:
		if len(req.Payload) >= 8 {
			p.alpha = decodeAngleVirtual(req.Payload[0:4])
			p.beta = decodeAngleVirtual(req.Payload[4:8])
		}
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.GotoAlpha:
		if len(req.Payload) >= 4 {
			p.alpha = decodeAngleVirtual(req.Payload[0:4])
		}
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.GotoBeta:
		if len(req.Payload) >= 4 {
			p.beta = decodeAngleVirtual(req.Payload[0:4])
		}
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.HomeAlpha:
		p.alpha = 0
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.HomeBeta:
		p.beta = 0
		return []RawFrame{v.frame1(id, req, nil)}

	case registry.StartTrajectory, registry.TrajectoryDataAlpha, registry.TrajectoryDataBeta,
		registry.TrajectoryEnd, registry.SendTrajectoryAbort, registry.StopTrajectory,
		registry.AlphaClosedLoopCollisionDetection, registry.BetaClosedLoopCollisionDetection,
		registry.AlphaClosedLoopWithoutCollisionDetection, registry.BetaClosedLoopWithoutCollisionDetection,
		registry.AlphaOpenLoopWithoutCollisionDetection, registry.BetaOpenLoopWithoutCollisionDetection:
		return []RawFrame{v.frame1(id, req, nil)}

	default:
		return nil
	}
}

func (v *VirtualFleet) frame1(id uint16, req canframe.Frame, payload []byte) RawFrame {
	arbID, data, _ := canframe.Encode(id, req.CommandID, req.UID, 0, true, payload)
	return RawFrame{ArbitrationID: arbID, Data: data}
}

// SetCollision forces id's collision status bits, used by tests and the
// --virtual CLI to exercise the lock-on-collision path.
func (v *VirtualFleet) SetCollision(id uint16, alpha, beta bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.positioners[id]
	if !ok {
		return
	}
	const collisionA, collisionB = 1 << 4, 1 << 5
	if alpha {
		p.status |= collisionA
	} else {
		p.status &^= collisionA
	}
	if beta {
		p.status |= collisionB
	} else {
		p.status &^= collisionB
	}
}

const angleScaleVirtual = 1000.0

func decodeAngleVirtual(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / angleScaleVirtual
}
