// Package connectivity reports whether a network path is believed available.
// The answer is a hint only; actual request outcomes are the ground truth.
package connectivity

import (
	"context"
	"net"
	"time"
)

// State is the oracle's belief about connectivity. A nil Connected means
// unknown and must be treated as connected so that real I/O gets attempted.
type State struct {
	Connected *bool
}

// Online resolves the tri-state belief into a go/no-go answer.
func (s State) Online() bool {
	return s.Connected == nil || *s.Connected
}

type Oracle interface {
	State(ctx context.Context) State
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context) State

func (f OracleFunc) State(ctx context.Context) State { return f(ctx) }

// Always reports a fixed belief. Always(true) matches platforms without a
// reachability API, which assume online and rely on request failures.
func Always(connected bool) Oracle {
	return OracleFunc(func(context.Context) State {
		c := connected
		return State{Connected: &c}
	})
}

// Probe believes the network is up when a TCP dial to addr succeeds within
// the timeout. A failed dial yields a firm "offline", not "unknown".
type Probe struct {
	Addr    string
	Timeout time.Duration
}

func (p Probe) State(ctx context.Context) State {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	connected := err == nil
	if conn != nil {
		conn.Close()
	}
	return State{Connected: &connected}
}
