// Package endpoint talks to the rover (or its simulation) behind one
// contract. Every implementation degrades transport faults to error
// returns; the control loop never sees a panic from this layer, and a
// timeout is a normal failure outcome.
package endpoint

import (
	"context"
	"errors"

	"github.com/nova-explorer/roverd/internal/nav"
)

// ErrNoSession is returned when an operation runs before StartSession or
// with an unknown session ID.
var ErrNoSession = errors.New("endpoint: session not started")

// Client is the transport contract to the rover.
type Client interface {
	// StartSession establishes a session and returns its ID.
	StartSession(ctx context.Context) (string, error)

	// Telemetry fetches one raw telemetry record. Records may be partial;
	// the reconciler deals with missing or malformed fields.
	Telemetry(ctx context.Context, sessionID string) (map[string]any, error)

	// SendAction dispatches one actuation command.
	SendAction(ctx context.Context, sessionID string, action nav.Action) error

	// Stop halts the rover and releases the session.
	Stop(ctx context.Context, sessionID string) error
}
