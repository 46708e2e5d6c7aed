package mx28ar

import (
	"context"
	"fmt"

	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// CoxaID names the hip joint of one leg. Its value is the servo's index
// inside the coxa group.
type CoxaID int

const (
	LeftFront CoxaID = iota
	LeftMiddle
	LeftBack
	RightFront
	RightMiddle
	RightBack
	numCoxae
)

var coxaNames = [numCoxae]string{
	LeftFront:   "left_front",
	LeftMiddle:  "left_middle",
	LeftBack:    "left_back",
	RightFront:  "right_front",
	RightMiddle: "right_middle",
	RightBack:   "right_back",
}

func (c CoxaID) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CoxaID(%d)", int(c))
	}
	return coxaNames[c]
}

// Valid reports whether c is one of the six legs.
func (c CoxaID) Valid() bool {
	return c >= 0 && c < numCoxae
}

// AllCoxae returns every leg in group order.
func AllCoxae() []CoxaID {
	ids := make([]CoxaID, numCoxae)
	for i := range ids {
		ids[i] = CoxaID(i)
	}
	return ids
}

// ParseCoxaID returns the leg with the given name, e.g. "left_front".
func ParseCoxaID(name string) (CoxaID, error) {
	for i, n := range coxaNames {
		if n == name {
			return CoxaID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCoxa, name)
}

// CoxaSyncGroup drives the six coxa servos together.
type CoxaSyncGroup struct {
	group *SyncGroup
}

// NewCoxaSyncGroup binds the six coxa servos to bus.
func NewCoxaSyncGroup(bus servobus.Bus, leftFrontID, leftMiddleID, leftBackID, rightFrontID, rightMiddleID, rightBackID int) *CoxaSyncGroup {
	ids := make([]int, numCoxae)
	ids[LeftFront] = leftFrontID
	ids[LeftMiddle] = leftMiddleID
	ids[LeftBack] = leftBackID
	ids[RightFront] = rightFrontID
	ids[RightMiddle] = rightMiddleID
	ids[RightBack] = rightBackID
	return &CoxaSyncGroup{group: NewSyncGroup(bus, ids...)}
}

// IDs returns the servo IDs in AllCoxae order.
func (c *CoxaSyncGroup) IDs() []int {
	return c.group.IDs()
}

// ID returns the servo ID of one leg.
func (c *CoxaSyncGroup) ID(coxa CoxaID) (int, bool) {
	if !coxa.Valid() {
		return 0, false
	}
	return c.group.IDs()[coxa], true
}

// SetTorqueEnable applies torque to every servo in the group.
func (c *CoxaSyncGroup) SetTorqueEnable(ctx context.Context, torque TorqueEnable) error {
	return c.group.SetTorqueEnable(ctx, torque)
}

// SetOperatingMode selects mode on every servo in the group.
func (c *CoxaSyncGroup) SetOperatingMode(ctx context.Context, mode OperatingMode) error {
	return c.group.SetOperatingMode(ctx, mode)
}

// SetGoalPositions commands one angle per leg. anglesDeg must hold all six legs.
func (c *CoxaSyncGroup) SetGoalPositions(ctx context.Context, anglesDeg map[CoxaID]float64) error {
	v, err := coxaVector(anglesDeg)
	if err != nil {
		return fmt.Errorf("set coxa goal position: %w", err)
	}
	return c.group.SetGoalPosition(ctx, v)
}

// SetAllGoalPositions commands the same angle to all six legs.
func (c *CoxaSyncGroup) SetAllGoalPositions(ctx context.Context, angleDeg float64) error {
	return c.SetGoalPositions(ctx, uniform(angleDeg))
}

// SetGoalVelocities commands one velocity per leg. velocitiesRPM must hold all six legs.
func (c *CoxaSyncGroup) SetGoalVelocities(ctx context.Context, velocitiesRPM map[CoxaID]float64) error {
	v, err := coxaVector(velocitiesRPM)
	if err != nil {
		return fmt.Errorf("set coxa goal velocity: %w", err)
	}
	return c.group.SetGoalVelocity(ctx, v)
}

// SetAllGoalVelocities commands the same velocity to all six legs.
func (c *CoxaSyncGroup) SetAllGoalVelocities(ctx context.Context, velocityRPM float64) error {
	return c.SetGoalVelocities(ctx, uniform(velocityRPM))
}

// coxaVector projects a per-leg map onto group order.
func coxaVector(m map[CoxaID]float64) ([]float64, error) {
	for id := range m {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCoxa, int(id))
		}
	}

	v := make([]float64, numCoxae)
	for _, id := range AllCoxae() {
		value, ok := m[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCoxa, id)
		}
		v[id] = value
	}
	return v, nil
}

func uniform(value float64) map[CoxaID]float64 {
	m := make(map[CoxaID]float64, numCoxae)
	for _, id := range AllCoxae() {
		m[id] = value
	}
	return m
}
