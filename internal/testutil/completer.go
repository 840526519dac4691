package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/procmigrate/internal/llm"
)

// Reply is one scripted generation-service answer.
type Reply struct {
	Text string
	Err  error
}

// ScriptedCompleter stands in for the generation service. It answers
// requests from a fixed script and records every request it receives.
//
// A request beyond the end of the script fails, so a test that expects
// zero calls can pass an empty script.
type ScriptedCompleter struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
}

// NewScriptedCompleter creates a completer answering with replies in order.
func NewScriptedCompleter(replies ...Reply) *ScriptedCompleter {
	return &ScriptedCompleter{replies: replies}
}

// Texts is shorthand for successful replies.
func Texts(texts ...string) []Reply {
	replies := make([]Reply, len(texts))
	for i, text := range texts {
		replies[i] = Reply{Text: text}
	}
	return replies
}

// Complete implements the generation-service contract.
func (c *ScriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.requests)
	c.requests = append(c.requests, req)
	if n >= len(c.replies) {
		return "", fmt.Errorf("unexpected generation request #%d", n+1)
	}
	return c.replies[n].Text, c.replies[n].Err
}

// Calls returns how many requests were received.
func (c *ScriptedCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Requests returns a copy of the received requests.
func (c *ScriptedCompleter) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}
