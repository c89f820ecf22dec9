// Package nav holds the pluggable navigation policies. A Strategy is a pure
// decision function over a state snapshot plus its own private state; it
// never touches the shared store. Whatever the policy, an obstacle inside
// its threshold always outranks exploration.
package nav

import "github.com/nova-explorer/roverd/internal/rover"

// Action is a discrete command for the rover.
type Action string

const (
	Forward   Action = "forward"
	Backward  Action = "backward"
	TurnLeft  Action = "turn_left"
	TurnRight Action = "turn_right"
	Stop      Action = "stop"
	DeployAid Action = "deploy_aid"
	None      Action = "none"
)

// Actuates reports whether the action should be dispatched to the rover.
func (a Action) Actuates() bool {
	switch a {
	case Forward, Backward, TurnLeft, TurnRight, Stop, DeployAid:
		return true
	}
	return false
}

// Strategy decides the next action from a state snapshot.
type Strategy interface {
	Decide(st rover.State) Action
}

// sensorFloat reads a coerced numeric sensor value.
func sensorFloat(sensors map[string]any, key string) (float64, bool) {
	v, ok := sensors[key].(float64)
	return v, ok
}

// clearance returns the side distance, treating an unreported sensor as
// open space.
func clearance(sensors map[string]any, key string) float64 {
	if v, ok := sensorFloat(sensors, key); ok {
		return v
	}
	return 999.0
}

// turnAway picks the turn with more clearance; ties go left.
func turnAway(sensors map[string]any) Action {
	left := clearance(sensors, "ultrasonic_left")
	right := clearance(sensors, "ultrasonic_right")
	if right > left {
		return TurnRight
	}
	return TurnLeft
}
