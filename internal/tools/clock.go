// ABOUTME: Clock tool reporting the current date and time in UTC
// ABOUTME: Always available, no external dependencies to connect
package tools

import (
	"context"
	"time"
)

// ClockTool answers "what time is it" questions. It has no backing service,
// so Connect always succeeds.
type ClockTool struct {
	lifecycle
	now func() time.Time
}

// NewClockTool creates a clock tool. now defaults to time.Now.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

func (t *ClockTool) Name() string { return "get_current_time" }

func (t *ClockTool) Scope() Scope { return ScopeProcess }

func (t *ClockTool) Description() string {
	return "Get the current date and time in UTC. Use this for any question about today's date or the current time."
}

func (t *ClockTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ClockTool) Connect(_ context.Context) error {
	if err := t.begin(); err != nil {
		return err
	}
	t.finish(nil)
	return nil
}

func (t *ClockTool) Invoke(_ context.Context, _ map[string]any) (string, error) {
	if err := t.requireReady(t.Name()); err != nil {
		return "", err
	}
	return t.now().UTC().Format(time.RFC3339), nil
}

func (t *ClockTool) Close() error {
	t.lifecycle.close()
	return nil
}

func (t *ClockTool) State() State { return t.current() }
