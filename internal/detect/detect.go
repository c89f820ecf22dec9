// Package detect spots survivor/marker signatures in sensor readings and
// appends deduplicated detection events to the bounded in-state log.
package detect

import (
	"time"

	"github.com/nova-explorer/roverd/internal/rover"
)

// IRThreshold is the infrared signal strength above which a detection
// trigger fires.
const IRThreshold = 75.0

// Trigger inspects sensor readings for a detection signature. RFID
// outranks IR; there is no severity ranking by IR magnitude. The returned
// strength pointer is non-nil only for IR triggers.
func Trigger(sensors map[string]any) (rover.SensorType, *float64, bool) {
	if rfid, ok := sensors["rfid_detected"].(bool); ok && rfid {
		return rover.SensorRFID, nil, true
	}
	if ir, ok := sensors["ir_signal_strength"].(float64); ok && ir > IRThreshold {
		strength := ir
		return rover.SensorIR, &strength, true
	}
	return "", nil, false
}

const (
	// DefaultCooldown suppresses repeat events of the same sensor type.
	DefaultCooldown = 5 * time.Second
	// DefaultCap bounds the in-memory detection log.
	DefaultCap = 200
)

// Logger assigns monotonic event IDs and enforces the dedup cooldown and
// the log cap. IDs keep increasing even after old events age out, so an ID
// is never reused within a process lifetime.
type Logger struct {
	Cooldown time.Duration
	Cap      int
	nextID   int
}

// NewLogger returns a Logger with the default cooldown and cap.
func NewLogger() *Logger {
	return &Logger{Cooldown: DefaultCooldown, Cap: DefaultCap}
}

// Log appends a detection event to st.SurvivorsFound if the trigger fires,
// the rover position is known, and the last logged event is not a
// same-type duplicate within the cooldown window. Returns true when an
// event was appended. The caller must hold the state store lock.
func (l *Logger) Log(st *rover.State, now time.Time) bool {
	sensorType, strength, fired := Trigger(st.Sensors)
	if !fired || st.Position == nil {
		return false
	}

	if n := len(st.SurvivorsFound); n > 0 {
		last := st.SurvivorsFound[n-1]
		if last.SensorType == sensorType && now.Sub(last.Timestamp) < l.Cooldown {
			return false
		}
	}

	l.nextID++
	st.SurvivorsFound = append(st.SurvivorsFound, rover.DetectionEvent{
		ID:             l.nextID,
		Position:       st.Position.Clone(),
		Timestamp:      now,
		SensorType:     sensorType,
		SignalStrength: strength,
	})
	if l.Cap > 0 && len(st.SurvivorsFound) > l.Cap {
		st.SurvivorsFound = st.SurvivorsFound[len(st.SurvivorsFound)-l.Cap:]
	}
	return true
}
