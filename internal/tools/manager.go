// ABOUTME: Manager activates a fresh tool set per session with bounded connects
// ABOUTME: Failed tools are excluded and reported, never fail the session
package tools

import (
	"context"
	"log"
	"time"
)

// ToolSet is the outcome of session activation: the tools that reached
// ready, plus the names of tools that failed to connect. The degraded list
// lets the session disclose missing capabilities to the user.
type ToolSet struct {
	Tools    []Tool
	Degraded []string
}

// ByName returns the ready tool with the given name, or nil.
func (ts *ToolSet) ByName(name string) Tool {
	for _, t := range ts.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Close closes every tool in the set. Memory tools clear their session rows
// here.
func (ts *ToolSet) Close() {
	for _, t := range ts.Tools {
		if err := t.Close(); err != nil {
			log.Printf("Warning: failed to close tool %s: %v", t.Name(), err)
		}
	}
}

// Manager builds per-session tool sets from shared backends.
type Manager struct {
	store          *MemoryStore // nil disables the memory tool
	browser        RepoBrowser  // nil disables the browser tool
	githubRef      string
	connectTimeout time.Duration
}

// NewManager creates a manager. Either backend may be nil; the corresponding
// tool is simply absent from activated sets.
func NewManager(store *MemoryStore, browser RepoBrowser, githubRef string, connectTimeout time.Duration) *Manager {
	return &Manager{
		store:          store,
		browser:        browser,
		githubRef:      githubRef,
		connectTimeout: connectTimeout,
	}
}

// Activate connects a fresh tool instance of each configured tool for the
// session. Activation never returns an error: a tool that fails or times
// out while connecting is excluded and named in Degraded.
func (m *Manager) Activate(ctx context.Context, sessionID string) *ToolSet {
	candidates := []Tool{NewClockTool()}
	if m.store != nil {
		candidates = append(candidates, NewMemoryTool(m.store, sessionID))
	}
	if m.browser != nil {
		candidates = append(candidates, NewBrowserTool(m.browser, m.githubRef))
	}

	set := &ToolSet{}
	for _, t := range candidates {
		if err := m.connect(ctx, t); err != nil {
			log.Printf("Warning: tool %s unavailable for session %s: %v", t.Name(), sessionID, err)
			set.Degraded = append(set.Degraded, t.Name())
			continue
		}
		set.Tools = append(set.Tools, t)
	}
	return set
}

// connect bounds each tool's activation so one slow backend cannot stall
// session start.
func (m *Manager) connect(ctx context.Context, t Tool) error {
	ctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.Connect(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases shared backends. Per-session state is released by
// ToolSet.Close, not here.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
