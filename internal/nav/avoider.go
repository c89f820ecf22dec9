package nav

import (
	"math/rand"
	"time"

	"github.com/nova-explorer/roverd/internal/rover"
)

// DefaultObstacleThreshold is the forward distance in meters below which
// the Avoider refuses to drive forward.
const DefaultObstacleThreshold = 0.8

// Avoider is the threshold-avoidance random-walk policy: turn away from a
// close obstacle, otherwise mostly drive forward with occasional random
// turns to keep coverage up.
type Avoider struct {
	ObstacleThreshold float64
	rnd               *rand.Rand
}

// NewAvoider builds an Avoider. A nil rnd gets a time-seeded source;
// tests inject a fixed seed for determinism.
func NewAvoider(threshold float64, rnd *rand.Rand) *Avoider {
	if threshold <= 0 {
		threshold = DefaultObstacleThreshold
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Avoider{ObstacleThreshold: threshold, rnd: rnd}
}

// Decide implements Strategy. ultrasonic_distance is the primary forward
// sensor; the multi-sensor simulation reports ultrasonic_front instead.
func (a *Avoider) Decide(st rover.State) Action {
	front, ok := sensorFloat(st.Sensors, "ultrasonic_distance")
	if !ok {
		front, ok = sensorFloat(st.Sensors, "ultrasonic_front")
	}
	if ok && front < a.ObstacleThreshold {
		return turnAway(st.Sensors)
	}

	switch r := a.rnd.Float64(); {
	case r < 0.75:
		return Forward
	case r < 0.90:
		return TurnLeft
	default:
		return TurnRight
	}
}
