package nav

import (
	"math/rand"
	"time"

	"github.com/nova-explorer/roverd/internal/rover"
)

// DefaultStopThreshold is the front distance in meters that forces the
// WallFollower into its avoiding state.
const DefaultStopThreshold = 0.35

type followMode int

const (
	exploring followMode = iota
	avoiding
)

// WallFollower is the two-state policy used with the multi-sensor
// simulation rig: a front obstacle below the stop threshold forces an
// avoiding turn toward the more open side, and a clear front re-enters
// exploration.
type WallFollower struct {
	StopThreshold float64
	mode          followMode
	rnd           *rand.Rand
}

// NewWallFollower builds a WallFollower. A nil rnd gets a time-seeded
// source.
func NewWallFollower(stopThreshold float64, rnd *rand.Rand) *WallFollower {
	if stopThreshold <= 0 {
		stopThreshold = DefaultStopThreshold
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &WallFollower{StopThreshold: stopThreshold, rnd: rnd}
}

// Decide implements Strategy.
func (w *WallFollower) Decide(st rover.State) Action {
	front := clearance(st.Sensors, "ultrasonic_front")
	if front < w.StopThreshold {
		w.mode = avoiding
		return turnAway(st.Sensors)
	}

	w.mode = exploring
	switch r := w.rnd.Float64(); {
	case r < 0.85:
		return Forward
	case r < 0.95:
		return TurnLeft
	default:
		return TurnRight
	}
}
