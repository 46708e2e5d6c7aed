package mx28ar

import (
	"context"

	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// Positions of the head servos inside the group.
const (
	headPan = iota
	headTilt
	headServos
)

// HeadSyncGroup drives the pan and tilt servos of the head together.
type HeadSyncGroup struct {
	group *SyncGroup
}

// NewHeadSyncGroup binds the pan and tilt servos to bus.
func NewHeadSyncGroup(bus servobus.Bus, panID, tiltID int) *HeadSyncGroup {
	ids := make([]int, headServos)
	ids[headPan] = panID
	ids[headTilt] = tiltID
	return &HeadSyncGroup{group: NewSyncGroup(bus, ids...)}
}

// IDs returns the pan and tilt servo IDs, in that order.
func (h *HeadSyncGroup) IDs() []int {
	return h.group.IDs()
}

// SetTorqueEnable applies torque to every servo in the group.
func (h *HeadSyncGroup) SetTorqueEnable(ctx context.Context, torque TorqueEnable) error {
	return h.group.SetTorqueEnable(ctx, torque)
}

// SetOperatingMode selects mode on every servo in the group.
func (h *HeadSyncGroup) SetOperatingMode(ctx context.Context, mode OperatingMode) error {
	return h.group.SetOperatingMode(ctx, mode)
}

// SetGoalPosition commands both head angles in one frame.
func (h *HeadSyncGroup) SetGoalPosition(ctx context.Context, panDeg, tiltDeg float64) error {
	return h.group.SetGoalPosition(ctx, headVector(panDeg, tiltDeg))
}

// SetGoalVelocity commands both head velocities in one frame.
func (h *HeadSyncGroup) SetGoalVelocity(ctx context.Context, panRPM, tiltRPM float64) error {
	return h.group.SetGoalVelocity(ctx, headVector(panRPM, tiltRPM))
}

// PresentPosition returns the pan and tilt angles from one snapshot.
func (h *HeadSyncGroup) PresentPosition(ctx context.Context) (panDeg, tiltDeg float64, err error) {
	angles, err := h.group.PresentPosition(ctx)
	if err != nil {
		return 0, 0, err
	}
	return angles[headPan], angles[headTilt], nil
}

func headVector(pan, tilt float64) []float64 {
	v := make([]float64, headServos)
	v[headPan] = pan
	v[headTilt] = tilt
	return v
}
