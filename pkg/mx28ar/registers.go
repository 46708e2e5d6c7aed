// Package mx28ar provides grouped access to Dynamixel MX-28AR servos: a
// generic sync group that moves engineering-unit vectors in one bus frame,
// and head (pan/tilt) and coxa (six legs) groups with named accessors.
package mx28ar

import (
	"fmt"
	"math"

	"github.com/l3xz/dynamixel-bridge/pkg/servobus"
)

// Control table entries used by the sync groups (Protocol 2.0 layout).
var (
	RegOperatingMode   = servobus.Register{Name: "operating_mode", Address: 11, Size: 1}
	RegTorqueEnable    = servobus.Register{Name: "torque_enable", Address: 64, Size: 1}
	RegGoalVelocity    = servobus.Register{Name: "goal_velocity", Address: 104, Size: 4}
	RegGoalPosition    = servobus.Register{Name: "goal_position", Address: 116, Size: 4}
	RegPresentPosition = servobus.Register{Name: "present_position", Address: 132, Size: 4}
)

// TorqueEnable switches the motor driver of a servo on or off.
type TorqueEnable int32

const (
	TorqueOff TorqueEnable = 0
	TorqueOn  TorqueEnable = 1
)

func (t TorqueEnable) String() string {
	switch t {
	case TorqueOff:
		return "off"
	case TorqueOn:
		return "on"
	default:
		return "unknown"
	}
}

// OperatingMode selects the servo's internal control loop.
// The servo only accepts a mode change while torque is off.
type OperatingMode int32

const (
	VelocityControl         OperatingMode = 1
	PositionControl         OperatingMode = 3
	ExtendedPositionControl OperatingMode = 4
	PWMControl              OperatingMode = 16
)

func (m OperatingMode) String() string {
	switch m {
	case VelocityControl:
		return "velocity"
	case PositionControl:
		return "position"
	case ExtendedPositionControl:
		return "extended_position"
	case PWMControl:
		return "pwm"
	default:
		return "unknown"
	}
}

// Unit scales of the position and velocity registers.
const (
	StepsPerRevolution = 4096
	DegreesPerStep     = 360.0 / StepsPerRevolution
	RPMPerStep         = 0.229
)

// DegreesToRaw converts an angle to position register steps. deg must be
// finite and within the int32 step range; the sync groups reject anything else.
func DegreesToRaw(deg float64) int32 {
	return int32(math.Round(deg / DegreesPerStep))
}

// RawToDegrees converts position register steps to an angle.
func RawToDegrees(raw int32) float64 {
	return float64(raw) * DegreesPerStep
}

// RPMToRaw converts a velocity to velocity register steps. Same domain as
// DegreesToRaw.
func RPMToRaw(rpm float64) int32 {
	return int32(math.Round(rpm / RPMPerStep))
}

// RawToRPM converts velocity register steps to RPM.
func RawToRPM(raw int32) float64 {
	return float64(raw) * RPMPerStep
}

// steps converts v to whole register steps of size step, rejecting values that
// have no int32 representation.
func steps(v, step float64) (int32, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	s := math.Round(v / step)
	if s < math.MinInt32 || s > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return int32(s), nil
}
