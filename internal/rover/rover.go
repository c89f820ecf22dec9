// Package rover defines the shared rover state model: the single aggregate
// that the control loop writes and the HTTP surface reads. All consumers
// outside the control loop receive deep copies, never live references.
package rover

import "time"

// ConnectionStatus describes the health of the link to the rover endpoint.
type ConnectionStatus string

const (
	Disconnected     ConnectionStatus = "Disconnected"
	Connecting       ConnectionStatus = "Connecting"
	Connected        ConnectionStatus = "Connected"
	ConnectionFailed ConnectionStatus = "Connection Failed"
	CommsLost        ConnectionStatus = "Comms Lost"
	EndpointError    ConnectionStatus = "Endpoint Error"
)

// Position is a last-known rover position. Z is only reported by the
// simulation endpoint.
type Position struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// Clone returns an independent copy of the position.
func (p Position) Clone() Position {
	out := p
	if p.Z != nil {
		z := *p.Z
		out.Z = &z
	}
	return out
}

// Vec3 is a three-axis sensor reading (accelerometer).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SensorType identifies which sensor produced a detection event.
type SensorType string

const (
	SensorRFID   SensorType = "RFID"
	SensorIR     SensorType = "IR"
	SensorSignal SensorType = "Signal"
)

// DetectionEvent records a single survivor/marker detection. Events are
// append-only: once created they are never mutated or removed, only aged out
// of the bounded log.
type DetectionEvent struct {
	ID             int        `json:"id"`
	Position       Position   `json:"position"`
	Timestamp      time.Time  `json:"timestamp"`
	SensorType     SensorType `json:"sensor_type"`
	SignalStrength *float64   `json:"signal_strength,omitempty"`
}

// ActionRecord captures the outcome of the most recent actuation dispatch.
type ActionRecord struct {
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the rover state aggregate. Fields are monotonically enriched:
// a partial telemetry record never blanks a previously known field.
// IsCharging and CommsOK are owned by the power policy; the reconciler
// must not touch them.
type State struct {
	Initialized      bool             `json:"initialized"`
	SessionID        string           `json:"session_id,omitempty"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	LastUpdated      *time.Time       `json:"last_updated,omitempty"`
	RoverStatus      string           `json:"rover_status"`
	Position         *Position        `json:"position,omitempty"`
	BatteryLevel     *float64         `json:"battery_level,omitempty"`
	IsCharging       bool             `json:"is_charging"`
	CommsOK          bool             `json:"comms_ok"`
	Sensors          map[string]any   `json:"sensors"`
	SurvivorsFound   []DetectionEvent `json:"survivors_found"`
	PathHistory      []Position       `json:"path_history"`
	LastError        string           `json:"last_error,omitempty"`
	LastActionSent   *ActionRecord    `json:"last_action_sent,omitempty"`
}

// NewState returns the zero-knowledge starting state.
func NewState() State {
	return State{
		ConnectionStatus: Disconnected,
		RoverStatus:      "Unknown",
		Sensors:          make(map[string]any),
		SurvivorsFound:   []DetectionEvent{},
		PathHistory:      []Position{},
	}
}

// Clone returns a deep copy of the state. Sensor map values are coerced
// value types (float64, bool, Vec3) so copying the map entries is
// sufficient.
func (s State) Clone() State {
	out := s

	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	if s.Position != nil {
		p := s.Position.Clone()
		out.Position = &p
	}
	if s.BatteryLevel != nil {
		b := *s.BatteryLevel
		out.BatteryLevel = &b
	}
	if s.LastActionSent != nil {
		a := *s.LastActionSent
		out.LastActionSent = &a
	}

	out.Sensors = make(map[string]any, len(s.Sensors))
	for k, v := range s.Sensors {
		out.Sensors[k] = v
	}

	out.SurvivorsFound = make([]DetectionEvent, len(s.SurvivorsFound))
	for i, ev := range s.SurvivorsFound {
		ev.Position = ev.Position.Clone()
		if ev.SignalStrength != nil {
			ss := *ev.SignalStrength
			ev.SignalStrength = &ss
		}
		out.SurvivorsFound[i] = ev
	}

	out.PathHistory = make([]Position, len(s.PathHistory))
	for i, p := range s.PathHistory {
		out.PathHistory[i] = p.Clone()
	}

	return out
}
