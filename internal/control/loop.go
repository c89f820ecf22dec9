// Package control runs the sense/think/act cycle: fetch telemetry,
// reconcile it into the state store, apply the power policy and survivor
// detector, pick a navigation action and dispatch it. The loop is the sole
// writer of the store; network calls happen outside the lock and only the
// in-memory policy steps hold it.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/nova-explorer/roverd/internal/detect"
	"github.com/nova-explorer/roverd/internal/endpoint"
	"github.com/nova-explorer/roverd/internal/monitoring"
	"github.com/nova-explorer/roverd/internal/nav"
	"github.com/nova-explorer/roverd/internal/power"
	"github.com/nova-explorer/roverd/internal/rover"
	"github.com/nova-explorer/roverd/internal/state"
	"github.com/nova-explorer/roverd/internal/telemetry"
	"github.com/nova-explorer/roverd/internal/timeutil"
)

const (
	// DefaultPeriod is the cycle period against the live REST API.
	DefaultPeriod = 2 * time.Second
	// DefaultSimPeriod is the cycle period against a local simulation.
	DefaultSimPeriod = 500 * time.Millisecond
	// DefaultCommsLostBackoff is the wait before a single reconnect probe
	// while the power policy holds comms down.
	DefaultCommsLostBackoff = 15 * time.Second
	// DefaultRecoverySleep follows an unexpected cycle fault.
	DefaultRecoverySleep = 5 * time.Second
	// PathHistoryCap bounds the in-memory path trace, oldest first out.
	PathHistoryCap = 200
)

// Config tunes the loop cadence. Zero fields take the defaults above.
type Config struct {
	Period           time.Duration
	CommsLostBackoff time.Duration
	RecoverySleep    time.Duration
	PathHistoryCap   int
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.CommsLostBackoff <= 0 {
		c.CommsLostBackoff = DefaultCommsLostBackoff
	}
	if c.RecoverySleep <= 0 {
		c.RecoverySleep = DefaultRecoverySleep
	}
	if c.PathHistoryCap <= 0 {
		c.PathHistoryCap = PathHistoryCap
	}
	return c
}

// Loop owns the write path into the state store.
type Loop struct {
	client   endpoint.Client
	store    *state.Store
	strategy nav.Strategy
	detector *detect.Logger
	clock    timeutil.Clock
	cfg      Config

	sessionID string
}

// New assembles a loop. A nil clock uses the real one; a nil detector gets
// the default cooldown and cap.
func New(client endpoint.Client, store *state.Store, strategy nav.Strategy, detector *detect.Logger, clock timeutil.Clock, cfg Config) *Loop {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if detector == nil {
		detector = detect.NewLogger()
	}
	return &Loop{
		client:   client,
		store:    store,
		strategy: strategy,
		detector: detector,
		clock:    clock,
		cfg:      cfg.withDefaults(),
	}
}

// Run establishes the session and cycles until ctx is canceled. A failed
// session establishment is the only fatal outcome; any fault inside a
// cycle is recorded and survived.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.connect(ctx); err != nil {
		return err
	}
	defer l.shutdown()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.cycleSafe(ctx)
	}
}

// connect performs session establishment. Failure here terminates the
// loop; there is no in-process retry of the initial handshake.
func (l *Loop) connect(ctx context.Context) error {
	l.store.Mutate(func(st *rover.State) {
		st.ConnectionStatus = rover.Connecting
		st.RoverStatus = "Initializing"
	})

	sid, err := l.client.StartSession(ctx)
	now := l.clock.Now()
	if err != nil {
		l.store.Mutate(func(st *rover.State) {
			st.LastUpdated = &now
			st.ConnectionStatus = rover.ConnectionFailed
			st.LastError = fmt.Sprintf("failed to start session: %v", err)
		})
		return fmt.Errorf("start session: %w", err)
	}

	l.sessionID = sid
	l.store.Mutate(func(st *rover.State) {
		st.LastUpdated = &now
		st.Initialized = true
		st.SessionID = sid
		st.ConnectionStatus = rover.Connected
		st.CommsOK = true
	})
	monitoring.Logf("control: session %s established", sid)
	return nil
}

// cycleSafe runs one cycle and converts a panic into a recorded fault plus
// a recovery sleep. The loop must never die on a transient cycle error.
func (l *Loop) cycleSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("control: cycle fault: %v", r)
			l.store.Mutate(func(st *rover.State) {
				st.LastError = fmt.Sprintf("loop fault: %v", r)
				st.RoverStatus = "Fault"
			})
			l.sleep(ctx, l.cfg.RecoverySleep)
		}
	}()
	l.cycle(ctx)
}

// cycle is one sense/think/act pass.
func (l *Loop) cycle(ctx context.Context) {
	start := l.clock.Now()

	commsOK := l.store.Read().CommsOK
	if commsOK {
		l.sense(ctx)
	} else if !l.reconnect(ctx) {
		// Still offline; the backoff already consumed this cycle's wait.
		return
	}

	action := l.think()

	if action.Actuates() {
		l.act(ctx, action)
	}

	l.sleep(ctx, l.cfg.Period-l.clock.Since(start))
}

// sense fetches one telemetry record outside the lock and reconciles it
// under a single critical section, so readers always observe a whole
// record or none of it.
func (l *Loop) sense(ctx context.Context) {
	record, err := l.client.Telemetry(ctx, l.sessionID)
	now := l.clock.Now()

	l.store.Mutate(func(st *rover.State) {
		st.LastUpdated = &now
		if err != nil {
			st.ConnectionStatus = rover.EndpointError
			st.LastError = fmt.Sprintf("telemetry fetch: %v", err)
			return
		}
		l.applyRecord(st, record)
	})
}

// reconnect handles the comms-lost state: wait out the backoff, then make
// exactly one probe fetch. Returns true when the probe succeeded and
// normal cadence may resume.
func (l *Loop) reconnect(ctx context.Context) bool {
	l.store.Mutate(func(st *rover.State) {
		st.ConnectionStatus = rover.CommsLost
		st.RoverStatus = "Comms Lost"
	})

	if !l.sleep(ctx, l.cfg.CommsLostBackoff) {
		return false
	}

	record, err := l.client.Telemetry(ctx, l.sessionID)
	now := l.clock.Now()
	if err != nil {
		monitoring.Logf("control: reconnect probe failed: %v", err)
		l.store.Mutate(func(st *rover.State) {
			st.LastUpdated = &now
		})
		return false
	}

	monitoring.Logf("control: reconnected")
	l.store.Mutate(func(st *rover.State) {
		st.LastUpdated = &now
		st.ConnectionStatus = rover.Connected
		st.CommsOK = true
		l.applyRecord(st, record)
	})
	return true
}

// applyRecord reconciles a raw record and extends the path trace. Must run
// inside a Mutate.
func (l *Loop) applyRecord(st *rover.State, record map[string]any) {
	if err := telemetry.Reconcile(st, record); err != nil {
		st.LastError = fmt.Sprintf("reconcile: %v", err)
		return
	}
	st.ConnectionStatus = rover.Connected
	if st.Position != nil {
		st.PathHistory = append(st.PathHistory, st.Position.Clone())
		if len(st.PathHistory) > l.cfg.PathHistoryCap {
			st.PathHistory = st.PathHistory[len(st.PathHistory)-l.cfg.PathHistoryCap:]
		}
	}
}

// think applies the power policy and survivor detector and picks the next
// action, all under one critical section. Charging suppresses navigation
// entirely; the strategy sees a snapshot and cannot write back.
func (l *Loop) think() nav.Action {
	action := nav.None
	now := l.clock.Now()

	l.store.Mutate(func(st *rover.State) {
		power.Apply(st, monitoring.Logf)
		l.detector.Log(st, now)

		switch {
		case st.IsCharging:
			st.RoverStatus = "Charging"
		case !st.CommsOK:
			st.RoverStatus = "Comms Lost"
		default:
			st.RoverStatus = "Thinking"
			action = l.strategy.Decide(st.Clone())
			if action.Actuates() {
				st.RoverStatus = fmt.Sprintf("Executing: %s", action)
			} else {
				st.RoverStatus = "Idle / Exploring"
			}
		}
	})
	return action
}

// act dispatches the action outside the lock and records the outcome.
// There is no retry; the next cycle makes a fresh decision.
func (l *Loop) act(ctx context.Context, action nav.Action) {
	err := l.client.SendAction(ctx, l.sessionID, action)
	if err != nil {
		monitoring.Logf("control: dispatch %s failed: %v", action, err)
	}
	now := l.clock.Now()
	l.store.Mutate(func(st *rover.State) {
		st.LastActionSent = &rover.ActionRecord{
			Action:    string(action),
			Success:   err == nil,
			Timestamp: now,
		}
	})
}

// sleep waits d on the loop clock, honoring cancellation. Returns false
// when ctx ended first.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-l.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// shutdown stops the rover and marks the store disconnected. Run's ctx is
// already canceled by the time this runs, so the stop call gets its own
// short deadline.
func (l *Loop) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.client.Stop(ctx, l.sessionID); err != nil {
		monitoring.Logf("control: stop on shutdown: %v", err)
	}
	l.store.Mutate(func(st *rover.State) {
		st.ConnectionStatus = rover.Disconnected
		st.RoverStatus = "Stopped"
	})
}
