package detect

import (
	"testing"
	"time"

	"github.com/nova-explorer/roverd/internal/rover"
)

func TestTrigger(t *testing.T) {
	strength := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		sensors  map[string]any
		wantType rover.SensorType
		wantStr  *float64
		fired    bool
	}{
		{"empty", map[string]any{}, "", nil, false},
		{"rfid true", map[string]any{"rfid_detected": true}, rover.SensorRFID, nil, true},
		{"rfid false", map[string]any{"rfid_detected": false}, "", nil, false},
		{"ir above threshold", map[string]any{"ir_signal_strength": 80.5}, rover.SensorIR, strength(80.5), true},
		{"ir at threshold", map[string]any{"ir_signal_strength": 75.0}, "", nil, false},
		{"ir below threshold", map[string]any{"ir_signal_strength": 40.0}, "", nil, false},
		{"rfid outranks ir", map[string]any{"rfid_detected": true, "ir_signal_strength": 99.0}, rover.SensorRFID, nil, true},
		{"rfid false falls through to ir", map[string]any{"rfid_detected": false, "ir_signal_strength": 90.0}, rover.SensorIR, strength(90.0), true},
		{"non-numeric ir ignored", map[string]any{"ir_signal_strength": "potato"}, "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotStr, fired := Trigger(tt.sensors)
			if fired != tt.fired {
				t.Fatalf("fired = %v, want %v", fired, tt.fired)
			}
			if gotType != tt.wantType {
				t.Errorf("type = %q, want %q", gotType, tt.wantType)
			}
			if (gotStr == nil) != (tt.wantStr == nil) {
				t.Fatalf("strength = %v, want %v", gotStr, tt.wantStr)
			}
			if gotStr != nil && *gotStr != *tt.wantStr {
				t.Errorf("strength = %v, want %v", *gotStr, *tt.wantStr)
			}
		})
	}
}

func detectableState() rover.State {
	st := rover.NewState()
	st.Position = &rover.Position{X: 1.0, Y: 2.0}
	st.Sensors = map[string]any{"rfid_detected": true}
	return st
}

func TestLogRequiresPosition(t *testing.T) {
	st := detectableState()
	st.Position = nil
	l := NewLogger()
	if l.Log(&st, time.Now()) {
		t.Fatal("logged an event with no known position")
	}
	if len(st.SurvivorsFound) != 0 {
		t.Fatalf("got %d events, want 0", len(st.SurvivorsFound))
	}
}

func TestLogCooldown(t *testing.T) {
	st := detectableState()
	l := NewLogger()
	base := time.Now()

	if !l.Log(&st, base) {
		t.Fatal("first trigger did not log")
	}
	if l.Log(&st, base.Add(2*time.Second)) {
		t.Fatal("duplicate inside cooldown was logged")
	}
	if !l.Log(&st, base.Add(10*time.Second)) {
		t.Fatal("trigger after cooldown was suppressed")
	}
	if len(st.SurvivorsFound) != 2 {
		t.Fatalf("got %d events, want 2", len(st.SurvivorsFound))
	}
}

func TestLogTypeChangeBypassesCooldown(t *testing.T) {
	st := detectableState()
	l := NewLogger()
	base := time.Now()

	if !l.Log(&st, base) {
		t.Fatal("rfid trigger did not log")
	}

	st.Sensors = map[string]any{"ir_signal_strength": 90.0}
	if !l.Log(&st, base.Add(time.Second)) {
		t.Fatal("ir trigger after rfid was suppressed by cooldown")
	}
	if got := st.SurvivorsFound[1].SensorType; got != rover.SensorIR {
		t.Errorf("second event type = %q, want %q", got, rover.SensorIR)
	}
}

func TestLogMonotonicIDsAndCap(t *testing.T) {
	st := detectableState()
	l := &Logger{Cooldown: time.Second, Cap: 3}
	base := time.Now()

	for i := 0; i < 5; i++ {
		if !l.Log(&st, base.Add(time.Duration(i)*2*time.Second)) {
			t.Fatalf("event %d was not logged", i)
		}
	}

	if len(st.SurvivorsFound) != 3 {
		t.Fatalf("got %d events, want cap of 3", len(st.SurvivorsFound))
	}
	// Oldest entries drop, IDs never reset.
	for i, want := range []int{3, 4, 5} {
		if got := st.SurvivorsFound[i].ID; got != want {
			t.Errorf("event[%d].ID = %d, want %d", i, got, want)
		}
	}
}

func TestLogSnapshotsPosition(t *testing.T) {
	st := detectableState()
	l := NewLogger()
	l.Log(&st, time.Now())

	st.Position.X = 99.0
	if got := st.SurvivorsFound[0].Position.X; got != 1.0 {
		t.Errorf("event position followed rover position: X = %v, want 1.0", got)
	}
}
