package endpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/nova-explorer/roverd/internal/monitoring"
	"github.com/nova-explorer/roverd/internal/nav"
)

// DefaultStreamTimeout bounds a single request/response exchange on the
// stream transport.
const DefaultStreamTimeout = 5 * time.Second

// Dialer opens the underlying stream. TCPDialer and SerialDialer cover the
// two supported rigs; tests supply their own.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// TCPDialer connects to the simulation supervisor's line-JSON socket.
func TCPDialer(addr string) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return conn, nil
	}
}

// SerialDialer opens a serial device speaking the same newline-delimited
// JSON protocol as the socket rig.
func SerialDialer(path string, baudRate int) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
		if err != nil {
			return nil, fmt.Errorf("open serial %s: %w", path, err)
		}
		return port, nil
	}
}

// StreamClient implements Client over a persistent newline-delimited JSON
// stream: {"command":"get_state"} answers with one state line, move and
// stop commands are fire-and-forget. Any read or write error marks the
// connection dead; the next operation dials fresh.
type StreamClient struct {
	dial    Dialer
	timeout time.Duration

	mu   sync.Mutex
	conn io.ReadWriteCloser
	br   *bufio.Reader
}

// NewStreamClient builds a stream client. A zero timeout uses
// DefaultStreamTimeout.
func NewStreamClient(dial Dialer, timeout time.Duration) *StreamClient {
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}
	return &StreamClient{dial: dial, timeout: timeout}
}

// StartSession dials the stream. The protocol has no session concept, so
// the ID only labels this connection's lifetime in the state snapshot.
func (c *StreamClient) StartSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// Telemetry requests one state record.
func (c *StreamClient) Telemetry(ctx context.Context, sessionID string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return nil, err
	}
	c.applyDeadline()

	if err := c.writeLocked(map[string]any{"command": "get_state"}); err != nil {
		return nil, err
	}
	line, err := c.br.ReadBytes('\n')
	if err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("read state line: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(line, &record); err != nil {
		// A garbled line is a bad record, not a dead connection.
		return nil, fmt.Errorf("decode state line: %w", err)
	}
	return record, nil
}

// SendAction dispatches a move or stop command. The protocol defines no
// acknowledgement, so success means the write went through.
func (c *StreamClient) SendAction(ctx context.Context, sessionID string, action nav.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	c.applyDeadline()

	switch action {
	case nav.Stop:
		return c.writeLocked(map[string]any{"command": "stop"})
	case nav.DeployAid:
		return c.writeLocked(map[string]any{"command": "deploy_aid"})
	case nav.Forward, nav.Backward, nav.TurnLeft, nav.TurnRight:
		return c.writeLocked(map[string]any{"command": "move", "direction": string(action)})
	default:
		return fmt.Errorf("action %q is not dispatchable", action)
	}
}

// Stop sends a final stop command and closes the stream.
func (c *StreamClient) Stop(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.writeLocked(map[string]any{"command": "stop"})
	c.dropLocked()
	return err
}

func (c *StreamClient) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)
	return nil
}

// applyDeadline pushes the exchange timeout down to the transport where it
// supports one. net.Conn takes absolute deadlines, serial ports a relative
// read timeout.
func (c *StreamClient) applyDeadline() {
	switch t := c.conn.(type) {
	case net.Conn:
		if err := t.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			monitoring.Logf("stream: set deadline: %v", err)
		}
	case serial.Port:
		if err := t.SetReadTimeout(c.timeout); err != nil {
			monitoring.Logf("stream: set read timeout: %v", err)
		}
	}
}

func (c *StreamClient) writeLocked(msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		c.dropLocked()
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

func (c *StreamClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.br = nil
	}
}
