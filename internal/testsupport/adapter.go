package testsupport

import (
	"context"
	"strings"
	"sync"

	"collate/internal/providers"
)

// ScriptedResponse is one canned answer from a ScriptedAdapter.
type ScriptedResponse struct {
	Record *providers.Record
	Err    error
}

// ScriptedAdapter plays back queued responses per id, for driving the
// enrichment loop without a network. When a Gate channel is set, every
// fetch blocks until the test sends on it, which lets tests hold the job
// loop at a known point.
type ScriptedAdapter struct {
	name string
	Gate chan struct{}

	mu        sync.Mutex
	responses map[string][]ScriptedResponse
	calls     map[string]int
}

// NewScriptedAdapter builds an adapter with no scripted responses; ids
// without a script answer not-found.
func NewScriptedAdapter(name string) *ScriptedAdapter {
	return &ScriptedAdapter{
		name:      strings.ToLower(name),
		responses: make(map[string][]ScriptedResponse),
		calls:     make(map[string]int),
	}
}

// Queue appends responses for an id. The last response repeats once the
// queue is exhausted.
func (a *ScriptedAdapter) Queue(id string, responses ...ScriptedResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[id] = append(a.responses[id], responses...)
}

// Calls reports how many times an id was fetched.
func (a *ScriptedAdapter) Calls(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[id]
}

func (a *ScriptedAdapter) Name() string {
	return a.name
}

func (a *ScriptedAdapter) FetchByID(ctx context.Context, id string) (*providers.Record, error) {
	if a.Gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-a.Gate:
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[id]++
	queue := a.responses[id]
	if len(queue) == 0 {
		return nil, providers.Wrap(providers.ErrNotFound, a.name, "fetch", "id "+id, nil)
	}
	response := queue[0]
	if len(queue) > 1 {
		a.responses[id] = queue[1:]
	}
	return response.Record, response.Err
}
