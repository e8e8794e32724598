package fps

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/albireox/jaeger-core/can"
	"github.com/albireox/jaeger-core/internal/registry"
)

// TrajectoryPoint is one (angle, time) waypoint of a per-arm trajectory.
// Time is seconds from trajectory start.
type TrajectoryPoint struct {
	Angle float64
	Time  float64
}

// PositionerTrajectory is one positioner's alpha and beta waypoint lists.
type PositionerTrajectory struct {
	Alpha []TrajectoryPoint
	Beta  []TrajectoryPoint
}

// Trajectory is the handle returned by SendTrajectory: which positioners
// uploaded successfully and which did not (spec.md §4.6.6 "Errors carry the
// partial trajectory for diagnostics").
type Trajectory struct {
	Uploaded []uint16
	Partial  []uint16
}

func encodeTrajectoryPoint(p TrajectoryPoint) []byte {
	b := make([]byte, 6)
	binary.BigEndian.PutUint32(b[0:4], uint32(int32(p.Angle*angleScale)))
	binary.BigEndian.PutUint16(b[4:6], uint16(p.Time*100))
	return b
}

// SendTrajectory uploads a parameterised multi-point trajectory to every
// positioner named in trajectories: START_TRAJECTORY, one
// TRAJECTORY_DATA_{ALPHA,BETA} frame per waypoint, then TRAJECTORY_END.
// Each positioner's upload runs concurrently and independently; a failure on
// one positioner does not abort the others, but is recorded in the returned
// Trajectory.Partial and surfaced via TrajectoryError.
func (f *FPS) SendTrajectory(ctx context.Context, trajectories map[uint16]PositionerTrajectory) (*Trajectory, error) {
	if f.Locked() {
		return nil, ErrFPSLocked
	}

	type result struct {
		pid uint16
		err error
	}
	resultsCh := make(chan result, len(trajectories))

	for pid, traj := range trajectories {
		go func(pid uint16, traj PositionerTrajectory) {
			resultsCh <- result{pid: pid, err: f.uploadTrajectory(ctx, pid, traj)}
		}(pid, traj)
	}

	traj := &Trajectory{}
	for range trajectories {
		r := <-resultsCh
		if r.err != nil {
			traj.Partial = append(traj.Partial, r.pid)
		} else {
			traj.Uploaded = append(traj.Uploaded, r.pid)
		}
	}

	if len(traj.Partial) > 0 {
		return traj, &TrajectoryError{Partial: traj.Partial}
	}
	return traj, nil
}

func (f *FPS) uploadTrajectory(ctx context.Context, pid uint16, traj PositionerTrajectory) error {
	timeout := f.cfg.FPS.InitialiseTimeouts

	start, err := f.SendCommand(ctx, registry.StartTrajectory, []uint16{pid}, nil, timeout, can.SendOptions{})
	if err != nil {
		return fmt.Errorf("fps: positioner %d start_trajectory: %w", pid, err)
	}
	if start != nil {
		if err := start.Wait(); err != nil {
			return fmt.Errorf("fps: positioner %d start_trajectory: %w", pid, err)
		}
	}

	if err := f.uploadArm(ctx, pid, registry.TrajectoryDataAlpha, traj.Alpha, timeout); err != nil {
		return err
	}
	if err := f.uploadArm(ctx, pid, registry.TrajectoryDataBeta, traj.Beta, timeout); err != nil {
		return err
	}

	end, err := f.SendCommand(ctx, registry.TrajectoryEnd, []uint16{pid}, nil, timeout, can.SendOptions{})
	if err != nil {
		return fmt.Errorf("fps: positioner %d trajectory_end: %w", pid, err)
	}
	if end != nil {
		if err := end.Wait(); err != nil {
			return fmt.Errorf("fps: positioner %d trajectory_end: %w", pid, err)
		}
	}
	return nil
}

func (f *FPS) uploadArm(ctx context.Context, pid uint16, commandID registry.CommandID, points []TrajectoryPoint, timeout time.Duration) error {
	for _, pt := range points {
		cmd, err := f.SendCommand(ctx, commandID, []uint16{pid}, encodeTrajectoryPoint(pt), timeout, can.SendOptions{})
		if err != nil {
			return fmt.Errorf("fps: positioner %d %s chunk: %w", pid, commandID, err)
		}
		if cmd != nil {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("fps: positioner %d %s chunk: %w", pid, commandID, err)
			}
		}
	}
	return nil
}
