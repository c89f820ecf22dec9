package nav

import (
	"math/rand"
	"testing"

	"github.com/nova-explorer/roverd/internal/rover"
)

func stateWithSensors(sensors map[string]any) rover.State {
	st := rover.NewState()
	st.Sensors = sensors
	return st
}

func TestActionActuates(t *testing.T) {
	for _, a := range []Action{Forward, Backward, TurnLeft, TurnRight, Stop, DeployAid} {
		if !a.Actuates() {
			t.Errorf("%q should actuate", a)
		}
	}
	if None.Actuates() {
		t.Error("none should not actuate")
	}
	if Action("warp").Actuates() {
		t.Error("unknown action should not actuate")
	}
}

func TestAvoiderObstacleNeverForward(t *testing.T) {
	a := NewAvoider(0, rand.New(rand.NewSource(1)))
	st := stateWithSensors(map[string]any{"ultrasonic_distance": 0.2})

	for i := 0; i < 100; i++ {
		if got := a.Decide(st); got == Forward {
			t.Fatalf("iteration %d: drove forward into an obstacle at 0.2m", i)
		}
	}
}

func TestAvoiderTurnsTowardClearance(t *testing.T) {
	tests := []struct {
		name    string
		sensors map[string]any
		want    Action
	}{
		{
			"right side open",
			map[string]any{"ultrasonic_distance": 0.3, "ultrasonic_left": 0.5, "ultrasonic_right": 2.0},
			TurnRight,
		},
		{
			"left side open",
			map[string]any{"ultrasonic_distance": 0.3, "ultrasonic_left": 2.0, "ultrasonic_right": 0.5},
			TurnLeft,
		},
		{
			"tie goes left",
			map[string]any{"ultrasonic_distance": 0.3, "ultrasonic_left": 1.0, "ultrasonic_right": 1.0},
			TurnLeft,
		},
		{
			"missing sides default open, tie goes left",
			map[string]any{"ultrasonic_distance": 0.3},
			TurnLeft,
		},
		{
			"front key from simulation rig",
			map[string]any{"ultrasonic_front": 0.3, "ultrasonic_left": 0.4, "ultrasonic_right": 5.0},
			TurnRight,
		},
	}
	a := NewAvoider(0, rand.New(rand.NewSource(1)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Decide(stateWithSensors(tt.sensors)); got != tt.want {
				t.Errorf("Decide() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvoiderRandomWalkDistribution(t *testing.T) {
	a := NewAvoider(0, rand.New(rand.NewSource(7)))
	st := stateWithSensors(map[string]any{"ultrasonic_distance": 5.0})

	counts := map[Action]int{}
	const n = 2000
	for i := 0; i < n; i++ {
		counts[a.Decide(st)]++
	}

	if counts[Forward] < n/2 {
		t.Errorf("forward count %d, want majority of %d", counts[Forward], n)
	}
	if counts[TurnLeft] == 0 || counts[TurnRight] == 0 {
		t.Errorf("turns never sampled: left=%d right=%d", counts[TurnLeft], counts[TurnRight])
	}
	if counts[Backward] != 0 || counts[Stop] != 0 {
		t.Errorf("unexpected actions sampled: %v", counts)
	}
}

func TestAvoiderNoSensorsStillMoves(t *testing.T) {
	a := NewAvoider(0, rand.New(rand.NewSource(3)))
	got := a.Decide(stateWithSensors(nil))
	if got != Forward && got != TurnLeft && got != TurnRight {
		t.Errorf("Decide() with no sensors = %q", got)
	}
}

func TestWallFollowerModes(t *testing.T) {
	w := NewWallFollower(0, rand.New(rand.NewSource(1)))

	blocked := stateWithSensors(map[string]any{
		"ultrasonic_front": 0.2,
		"ultrasonic_left":  0.4,
		"ultrasonic_right": 1.5,
	})
	if got := w.Decide(blocked); got != TurnRight {
		t.Fatalf("blocked front: Decide() = %q, want %q", got, TurnRight)
	}
	if w.mode != avoiding {
		t.Fatal("blocked front did not enter avoiding mode")
	}

	clear := stateWithSensors(map[string]any{"ultrasonic_front": 2.0})
	for i := 0; i < 50; i++ {
		if got := w.Decide(clear); got == Backward || got == Stop {
			t.Fatalf("clear front: unexpected %q", got)
		}
	}
	if w.mode != exploring {
		t.Fatal("clear front did not re-enter exploring mode")
	}
}

func TestWallFollowerThresholdBoundary(t *testing.T) {
	w := NewWallFollower(0.5, rand.New(rand.NewSource(1)))

	at := stateWithSensors(map[string]any{"ultrasonic_front": 0.5})
	w.Decide(at)
	if w.mode != exploring {
		t.Errorf("mode = %v, want exploring with front exactly at threshold", w.mode)
	}

	below := stateWithSensors(map[string]any{"ultrasonic_front": 0.49})
	w.Decide(below)
	if w.mode != avoiding {
		t.Errorf("mode = %v, want avoiding just below threshold", w.mode)
	}
}
