// Package robot describes the L3XZ servo topology and opens the bus it runs on.
package robot

import "github.com/l3xz/dynamixel-bridge/pkg/mx28ar"

// JointName identifies a servo-driven joint.
type JointName string

// Joint names for the head and the six coxa joints.
const (
	HeadPan         JointName = "head_pan"
	HeadTilt        JointName = "head_tilt"
	LeftFrontCoxa   JointName = "left_front_coxa"
	LeftMiddleCoxa  JointName = "left_middle_coxa"
	LeftBackCoxa    JointName = "left_back_coxa"
	RightFrontCoxa  JointName = "right_front_coxa"
	RightMiddleCoxa JointName = "right_middle_coxa"
	RightBackCoxa   JointName = "right_back_coxa"
)

// AllJoints returns all joint names in order: head first, then the coxae in
// mx28ar.AllCoxae order.
func AllJoints() []JointName {
	joints := []JointName{HeadPan, HeadTilt}
	for _, c := range mx28ar.AllCoxae() {
		joints = append(joints, CoxaJoint(c))
	}
	return joints
}

// CoxaJoint returns the joint name of a coxa.
func CoxaJoint(c mx28ar.CoxaID) JointName {
	return JointName(c.String() + "_coxa")
}
