package endpoint

import (
	"context"
	"errors"
	"testing"
)

func TestSimSessionLifecycle(t *testing.T) {
	s := NewSim(1)
	ctx := context.Background()

	if _, err := s.Telemetry(ctx, "bogus"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("telemetry before session: err = %v, want ErrNoSession", err)
	}

	sid, err := s.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sid == "" {
		t.Fatal("empty session id")
	}

	if _, err := s.Telemetry(ctx, sid); err != nil {
		t.Fatalf("Telemetry: %v", err)
	}
	if err := s.SendAction(ctx, "wrong", "forward"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("wrong session: err = %v, want ErrNoSession", err)
	}

	if err := s.Stop(ctx, sid); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := s.Telemetry(ctx, sid); !errors.Is(err, ErrNoSession) {
		t.Fatalf("telemetry after stop: err = %v, want ErrNoSession", err)
	}
}

func TestSimRecordShape(t *testing.T) {
	s := NewSim(1)
	ctx := context.Background()
	sid, _ := s.StartSession(ctx)

	record, err := s.Telemetry(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := record["battery_level"].(float64); !ok {
		t.Error("battery_level missing or not a float")
	}
	pos, ok := record["position"].(map[string]any)
	if !ok {
		t.Fatal("position missing")
	}
	for _, k := range []string{"x", "y"} {
		if _, ok := pos[k].(float64); !ok {
			t.Errorf("position[%q] missing or not a float", k)
		}
	}
	sensors, ok := record["sensors"].(map[string]any)
	if !ok {
		t.Fatal("sensors missing")
	}
	for _, k := range []string{"ultrasonic_distance", "ir_signal_strength"} {
		if _, ok := sensors[k].(float64); !ok {
			t.Errorf("sensors[%q] missing or not a float", k)
		}
	}
	if _, ok := sensors["rfid_detected"].(bool); !ok {
		t.Error("sensors[rfid_detected] missing or not a bool")
	}
}

func TestSimBatteryDrainsAndDocks(t *testing.T) {
	s := NewSim(1)
	ctx := context.Background()
	sid, _ := s.StartSession(ctx)

	if err := s.SendAction(ctx, sid, "forward"); err != nil {
		t.Fatal(err)
	}

	var lowest float64 = 100.0
	for i := 0; i < 2000; i++ {
		record, err := s.Telemetry(ctx, sid)
		if err != nil {
			t.Fatal(err)
		}
		b := record["battery_level"].(float64)
		if b < lowest {
			lowest = b
		}
		if b < ChargeFloor {
			t.Fatalf("battery %v fell below floor %v", b, ChargeFloor)
		}
	}
	if lowest > ChargeFloor {
		t.Fatalf("battery never reached the floor: lowest = %v", lowest)
	}

	// After bottoming out the dock recharges it.
	record, _ := s.Telemetry(ctx, sid)
	final := record["battery_level"].(float64)
	if final > 95.0 {
		t.Errorf("battery %v above the undock level", final)
	}
}

func TestSimDeterministicUnderSeed(t *testing.T) {
	run := func() []float64 {
		s := NewSim(42)
		ctx := context.Background()
		sid, _ := s.StartSession(ctx)
		s.SendAction(ctx, sid, "forward")
		var out []float64
		for i := 0; i < 20; i++ {
			record, _ := s.Telemetry(ctx, sid)
			pos := record["position"].(map[string]any)
			out = append(out, pos["x"].(float64), pos["y"].(float64), record["battery_level"].(float64))
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged at sample %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestSimMovementFollowsCommands(t *testing.T) {
	s := NewSim(1)
	ctx := context.Background()
	sid, _ := s.StartSession(ctx)

	// Parked rover does not move.
	r1, _ := s.Telemetry(ctx, sid)
	r2, _ := s.Telemetry(ctx, sid)
	p1 := r1["position"].(map[string]any)
	p2 := r2["position"].(map[string]any)
	if p1["x"] != p2["x"] || p1["y"] != p2["y"] {
		t.Fatal("parked rover moved")
	}

	s.SendAction(ctx, sid, "forward")
	r3, _ := s.Telemetry(ctx, sid)
	p3 := r3["position"].(map[string]any)
	if p3["x"] == p2["x"] && p3["y"] == p2["y"] {
		t.Fatal("moving rover stayed in place")
	}

	s.SendAction(ctx, sid, "stop")
	r4, _ := s.Telemetry(ctx, sid)
	r5, _ := s.Telemetry(ctx, sid)
	p4 := r4["position"].(map[string]any)
	p5 := r5["position"].(map[string]any)
	if p4["x"] != p5["x"] || p4["y"] != p5["y"] {
		t.Fatal("stopped rover kept moving")
	}
}
