// Package telemetry merges raw endpoint records into the rover state.
//
// Reconciliation is per-field and forgiving: a key that is absent or fails
// its structural check leaves the previous value in place, so the state is
// monotonically enriched cycle over cycle and a partial record can never
// blank what an earlier record reported.
package telemetry

import (
	"errors"
	"strconv"

	"github.com/nova-explorer/roverd/internal/rover"
)

// ErrNoTelemetry signals that no record at all was produced this cycle.
var ErrNoTelemetry = errors.New("telemetry: no record")

// Sensor keys coerced to float64.
var numericSensorKeys = []string{
	"ultrasonic_distance",
	"ultrasonic_front",
	"ultrasonic_left",
	"ultrasonic_right",
	"ir_signal_strength",
}

// Reconcile applies raw onto st. The REST endpoint reports sensor keys at
// the top level of the record; the simulation endpoint nests them under
// "sensors". Both shapes are accepted. Unknown keys are ignored, malformed
// sub-fields are skipped without error. IsCharging and CommsOK are never
// written here; the power policy owns them.
func Reconcile(st *rover.State, raw map[string]any) error {
	if raw == nil {
		return ErrNoTelemetry
	}

	if b, ok := asFloat(raw["battery_level"]); ok {
		st.BatteryLevel = &b
	}

	if p, ok := asPosition(raw["position"]); ok {
		st.Position = &p
	}

	if st.Sensors == nil {
		st.Sensors = make(map[string]any)
	}
	mergeSensors(st.Sensors, raw)
	if nested, ok := raw["sensors"].(map[string]any); ok {
		mergeSensors(st.Sensors, nested)
	}

	return nil
}

func mergeSensors(dst map[string]any, src map[string]any) {
	for _, key := range numericSensorKeys {
		if v, ok := asFloat(src[key]); ok {
			dst[key] = v
		}
	}
	if v, ok := src["rfid_detected"].(bool); ok {
		dst["rfid_detected"] = v
	}
	if a, ok := asVec3(src["accelerometer"]); ok {
		dst["accelerometer"] = a
	}
}

// asFloat coerces JSON numbers and numeric strings. The live endpoint has
// been observed reporting battery level as a quoted string.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asPosition requires an object with numeric x and y; z is optional.
func asPosition(v any) (rover.Position, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return rover.Position{}, false
	}
	x, okX := asFloat(obj["x"])
	y, okY := asFloat(obj["y"])
	if !okX || !okY {
		return rover.Position{}, false
	}
	p := rover.Position{X: x, Y: y}
	if z, okZ := asFloat(obj["z"]); okZ {
		p.Z = &z
	}
	return p, true
}

// asVec3 requires an object with numeric x, y and z.
func asVec3(v any) (rover.Vec3, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return rover.Vec3{}, false
	}
	x, okX := asFloat(obj["x"])
	y, okY := asFloat(obj["y"])
	z, okZ := asFloat(obj["z"])
	if !okX || !okY || !okZ {
		return rover.Vec3{}, false
	}
	return rover.Vec3{X: x, Y: y, Z: z}, true
}
