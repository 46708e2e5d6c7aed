// Package dynamixelbridge drives the Dynamixel MX-28AR servos of the L3XZ
// hexapod: the head pan/tilt pair and the six leg coxa joints.
//
// Every group of servos is written and read with one sync frame per call, so
// all members of a group move on, or report, the same bus transaction.
//
// # Installation
//
//	go install github.com/l3xz/dynamixel-bridge/cmd/dynamixel-bridge@latest
//
// # Usage
//
// First, run setup to find the servo bus and check the wiring:
//
//	dynamixel-bridge setup
//
// Then start the control loop:
//
//	dynamixel-bridge run
//
// One-shot commands are available for bring-up:
//
//	dynamixel-bridge torque on --mode position
//	dynamixel-bridge head --pan 180 --tilt 180
//	dynamixel-bridge coxa --all 180
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/dynamixel-bridge: CLI with setup, run, head, coxa and torque commands
//   - cmd/mx28ar-info: bus scanner printing present positions
//   - pkg/mx28ar: MX-28AR registers, generic, head and coxa sync groups
//   - pkg/servobus: ordered sync read/write over a shared servo bus
//   - pkg/robot: L3XZ servo configuration and bus setup
//   - pkg/bridge: control loop publishing head positions and flushing setpoints
package dynamixelbridge
