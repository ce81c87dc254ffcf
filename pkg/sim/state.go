// Package sim provides position source interfaces and types.
package sim

// State represents the connection and activity state of the position source.
type State string

const (
	// StateDisconnected indicates no position source.
	StateDisconnected State = "disconnected"
	// StateInactive indicates connected but paused or in a menu. The mix is frozen.
	StateInactive State = "inactive"
	// StateActive indicates the observer is walking the vehicle.
	StateActive State = "active"
)

// ActiveCameraStates are the views where the observer position drives the mix.
var ActiveCameraStates = map[int32]bool{
	2:  true, // Cockpit
	3:  true, // Chase
	4:  true, // Drone
	16: true, // Cinematic
	30: true, // Cockpit VR
	34: true, // Chase VR
}

// InactiveCameraStates are the menu and pause views.
var InactiveCameraStates = map[int32]bool{
	12: true, // Menu
	15: true, // Pause
	32: true, // Loading
}

// UpdateState maps a camera value to a state, or nil to keep the current one.
func UpdateState(cameraState int32) *State {
	if ActiveCameraStates[cameraState] {
		s := StateActive
		return &s
	}
	if InactiveCameraStates[cameraState] {
		s := StateInactive
		return &s
	}
	return nil // Ignore unknown camera states
}
