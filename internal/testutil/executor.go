package testutil

import (
	"context"
	"sync"
)

// ScriptedExecutor stands in for the target database. The i-th Execute call
// returns the i-th scripted error; calls past the script succeed.
type ScriptedExecutor struct {
	mu       sync.Mutex
	results  []error
	executed []string
}

// NewScriptedExecutor creates an executor returning results in order.
func NewScriptedExecutor(results ...error) *ScriptedExecutor {
	return &ScriptedExecutor{results: results}
}

// Execute records sql and returns the next scripted result.
func (e *ScriptedExecutor) Execute(_ context.Context, sql string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.executed)
	e.executed = append(e.executed, sql)
	if n < len(e.results) {
		return e.results[n]
	}
	return nil
}

// Executed returns the statements received, in order.
func (e *ScriptedExecutor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}
