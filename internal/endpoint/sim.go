package endpoint

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/nova-explorer/roverd/internal/nav"
)

// Sim is an in-process fake rover for dev mode and smoke tests: battery
// drains as it drives, position integrates the commanded heading, and
// obstacles and IR markers appear with fixed probabilities. Deterministic
// under a fixed seed.
type Sim struct {
	mux       sync.Mutex
	rnd       *rand.Rand
	sessionID string

	battery float64
	x, y    float64
	heading float64 // radians
	moving  bool
	docked  bool
}

// NewSim creates a simulated rover endpoint.
func NewSim(seed int64) *Sim {
	return &Sim{
		rnd:     rand.New(rand.NewSource(seed)),
		battery: 100.0,
	}
}

// StartSession implements Client.
func (s *Sim) StartSession(ctx context.Context) (string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.sessionID = uuid.NewString()
	return s.sessionID, nil
}

// Telemetry implements Client. Each poll advances the simulation one step.
func (s *Sim) Telemetry(ctx context.Context, sessionID string) (map[string]any, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if sessionID == "" || sessionID != s.sessionID {
		return nil, ErrNoSession
	}

	s.step()

	record := map[string]any{
		"battery_level": s.battery,
		"position":      map[string]any{"x": s.x, "y": s.y},
		"sensors": map[string]any{
			"ultrasonic_distance": s.frontDistance(),
			"ir_signal_strength":  s.irSignal(),
			"rfid_detected":       s.rnd.Float64() < 0.02,
			"accelerometer": map[string]any{
				"x": s.rnd.NormFloat64() * 0.05,
				"y": s.rnd.NormFloat64() * 0.05,
				"z": 9.81 + s.rnd.NormFloat64()*0.02,
			},
		},
	}
	return record, nil
}

// SendAction implements Client.
func (s *Sim) SendAction(ctx context.Context, sessionID string, action nav.Action) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if sessionID == "" || sessionID != s.sessionID {
		return ErrNoSession
	}
	switch action {
	case nav.Forward:
		s.moving = true
	case nav.Backward:
		s.moving = true
		s.heading += math.Pi
	case nav.TurnLeft:
		s.heading += math.Pi / 8
	case nav.TurnRight:
		s.heading -= math.Pi / 8
	case nav.Stop:
		s.moving = false
	case nav.DeployAid:
		// No physical effect in the simulation.
	}
	return nil
}

// Stop implements Client.
func (s *Sim) Stop(ctx context.Context, sessionID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if sessionID != s.sessionID {
		return ErrNoSession
	}
	s.moving = false
	s.sessionID = ""
	return nil
}

func (s *Sim) step() {
	if s.docked {
		// The dock recharges a parked rover; undocking well above the
		// latch exit keeps the charging flag exercised end to end.
		s.battery += 2.0
		if s.battery >= 95.0 {
			s.battery = 95.0
			s.docked = false
		}
		return
	}

	drain := 0.05
	if s.moving {
		drain = 0.25
		s.x += 0.1 * math.Cos(s.heading)
		s.y += 0.1 * math.Sin(s.heading)
	}
	s.battery -= drain
	if s.battery <= ChargeFloor {
		s.battery = ChargeFloor
		s.moving = false
		s.docked = true
	}
}

// ChargeFloor is where the simulated battery bottoms out, low enough to
// exercise the charging latch.
const ChargeFloor = 3.0

func (s *Sim) frontDistance() float64 {
	if s.rnd.Float64() < 0.15 {
		return 0.2 + s.rnd.Float64()*0.5
	}
	return 1.5 + s.rnd.Float64()*3.0
}

func (s *Sim) irSignal() float64 {
	if s.rnd.Float64() < 0.05 {
		return 80.0 + s.rnd.Float64()*20.0
	}
	return s.rnd.Float64() * 40.0
}
