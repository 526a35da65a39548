// ABOUTME: Tool interface and lifecycle states for session-scoped capabilities
// ABOUTME: Tools move uninitialized -> connecting -> ready, or to failed/closed
package tools

import (
	"context"
	"fmt"
	"sync"
)

// State is a tool's lifecycle position. A tool only serves invocations
// while ready; a failed tool is excluded from the session rather than
// failing it.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Scope says whether a tool's state is shared across sessions or private
// to one. Session-scoped tools release their state on Close.
type Scope string

const (
	ScopeProcess Scope = "process"
	ScopeSession Scope = "session"
)

// Tool is one capability exposed to the completion model during a session.
// Parameters returns a JSON-schema object describing the accepted arguments.
type Tool interface {
	Name() string
	Description() string
	Scope() Scope
	Parameters() map[string]any
	Connect(ctx context.Context) error
	Invoke(ctx context.Context, args map[string]any) (string, error)
	Close() error
	State() State
}

// lifecycle is the shared state machine embedded by each tool.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

// begin moves uninitialized -> connecting. Connecting twice is a bug.
func (l *lifecycle) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateUninitialized {
		return fmt.Errorf("cannot connect from state %s", l.state)
	}
	l.state = StateConnecting
	return nil
}

// finish moves connecting -> ready or connecting -> failed.
func (l *lifecycle) finish(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateFailed
		return
	}
	l.state = StateReady
}

func (l *lifecycle) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

func (l *lifecycle) current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// requireReady guards Invoke.
func (l *lifecycle) requireReady(name string) error {
	if s := l.current(); s != StateReady {
		return fmt.Errorf("tool %s is %s, not ready", name, s)
	}
	return nil
}

// stringArg extracts a required string argument from a tool call.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
