// Package power derives the comms and charging flags from battery level.
// It is the sole writer of State.CommsOK and State.IsCharging.
package power

import "github.com/nova-explorer/roverd/internal/rover"

const (
	// CommsThreshold is the battery level below which the radio is assumed
	// dead. Comms follow the level directly, with no hysteresis.
	CommsThreshold = 10.0

	// ChargeEnter and ChargeExit form the charging latch: charging starts
	// at or below ChargeEnter and only ends at or above ChargeExit, so the
	// flag cannot oscillate inside the band between them.
	ChargeEnter = 5.0
	ChargeExit  = 80.0
)

// Apply updates st.CommsOK and st.IsCharging from st.BatteryLevel. When the
// battery level is unknown both flags hold their previous values; guessing
// either way would flap the loop on the first lost record. Transitions are
// reported through logf, which may be nil.
func Apply(st *rover.State, logf func(format string, v ...any)) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if st.BatteryLevel == nil {
		return
	}
	battery := *st.BatteryLevel

	commsOK := battery >= CommsThreshold
	if commsOK != st.CommsOK {
		if commsOK {
			logf("power: battery %.1f%% >= %.0f%%, comms restored", battery, CommsThreshold)
		} else {
			logf("power: battery %.1f%% < %.0f%%, comms lost", battery, CommsThreshold)
		}
	}
	st.CommsOK = commsOK

	switch {
	case !st.IsCharging && battery <= ChargeEnter:
		st.IsCharging = true
		logf("power: battery %.1f%% <= %.0f%%, entering charging", battery, ChargeEnter)
	case st.IsCharging && battery >= ChargeExit:
		st.IsCharging = false
		logf("power: battery %.1f%% >= %.0f%%, exiting charging", battery, ChargeExit)
	}
}
