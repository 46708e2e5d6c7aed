package mx28ar

import (
	"context"
	"fmt"

	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// Group is the part of the API shared by all sync groups.
type Group interface {
	IDs() []int
	SetTorqueEnable(ctx context.Context, torque TorqueEnable) error
	SetOperatingMode(ctx context.Context, mode OperatingMode) error
}

// SyncGroup moves engineering-unit values for a fixed, ordered set of
// MX-28AR servos. Each call is exactly one bus transaction. Index i of every
// value slice refers to IDs()[i] for the lifetime of the group.
//
// A SyncGroup keeps no setpoint state. The bus may be shared with other groups.
type SyncGroup struct {
	bus *servobus.SyncGroup
}

// NewSyncGroup binds the servos with the given IDs, in that order, to bus.
func NewSyncGroup(bus servobus.Bus, ids ...int) *SyncGroup {
	return &SyncGroup{bus: servobus.NewSyncGroup(bus, ids...)}
}

// IDs returns the servo IDs in group order.
func (g *SyncGroup) IDs() []int {
	return g.bus.IDs()
}

// Len returns the number of servos in the group.
func (g *SyncGroup) Len() int {
	return g.bus.Len()
}

// SetTorqueEnable applies torque to every servo in the group.
func (g *SyncGroup) SetTorqueEnable(ctx context.Context, torque TorqueEnable) error {
	return g.broadcast(ctx, RegTorqueEnable, int32(torque))
}

// SetOperatingMode selects mode on every servo in the group.
func (g *SyncGroup) SetOperatingMode(ctx context.Context, mode OperatingMode) error {
	return g.broadcast(ctx, RegOperatingMode, int32(mode))
}

// SetGoalPosition commands anglesDeg[i] degrees to servo i.
func (g *SyncGroup) SetGoalPosition(ctx context.Context, anglesDeg []float64) error {
	raw, err := g.convert(anglesDeg, DegreesPerStep)
	if err != nil {
		return fmt.Errorf("set goal position: %w", err)
	}
	return g.write(ctx, RegGoalPosition, raw)
}

// SetGoalVelocity commands velocitiesRPM[i] RPM to servo i.
func (g *SyncGroup) SetGoalVelocity(ctx context.Context, velocitiesRPM []float64) error {
	raw, err := g.convert(velocitiesRPM, RPMPerStep)
	if err != nil {
		return fmt.Errorf("set goal velocity: %w", err)
	}
	return g.write(ctx, RegGoalVelocity, raw)
}

// PresentPosition reads the position of all servos in one transaction and
// returns them in degrees, in group order.
func (g *SyncGroup) PresentPosition(ctx context.Context) ([]float64, error) {
	raw, err := g.bus.Read(ctx, RegPresentPosition)
	if err != nil {
		return nil, &BusError{Op: "read", Register: RegPresentPosition, Err: err}
	}
	if len(raw) != g.Len() {
		return nil, &BusError{
			Op:       "read",
			Register: RegPresentPosition,
			Err:      fmt.Errorf("%w: got %d values for %d servos", servobus.ErrMalformedResponse, len(raw), g.Len()),
		}
	}

	angles := make([]float64, len(raw))
	for i, r := range raw {
		angles[i] = RawToDegrees(r)
	}
	return angles, nil
}

func (g *SyncGroup) broadcast(ctx context.Context, reg servobus.Register, value int32) error {
	values := make([]int32, g.Len())
	for i := range values {
		values[i] = value
	}
	return g.write(ctx, reg, values)
}

// convert checks every value before any of them reaches the bus.
func (g *SyncGroup) convert(values []float64, step float64) ([]int32, error) {
	if len(values) != g.Len() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(values), g.Len())
	}
	raw := make([]int32, len(values))
	for i, v := range values {
		r, err := steps(v, step)
		if err != nil {
			return nil, fmt.Errorf("servo %d: %w", g.bus.IDs()[i], err)
		}
		raw[i] = r
	}
	return raw, nil
}

func (g *SyncGroup) write(ctx context.Context, reg servobus.Register, raw []int32) error {
	if err := g.bus.Write(ctx, reg, raw); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}
