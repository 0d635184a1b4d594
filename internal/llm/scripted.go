package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// ScriptedGateway replays canned completions in order (useful for tests/demos).
// When the script runs out the last response is repeated.
type ScriptedGateway struct {
	mu        sync.Mutex
	responses []Response
	prompts   []string
}

// Response is one scripted reply: either a content string wrapped in an envelope, or an error.
type Response struct {
	Content string
	Raw     []byte
	Err     error
}

func NewScriptedGateway(responses ...Response) *ScriptedGateway {
	return &ScriptedGateway{responses: responses}
}

func (g *ScriptedGateway) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.responses) == 0 {
		return Envelope(""), nil
	}
	idx := len(g.prompts) - 1
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	r := g.responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Raw != nil {
		return r.Raw, nil
	}
	return Envelope(r.Content), nil
}

// Prompts returns every prompt received so far.
func (g *ScriptedGateway) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Envelope wraps content the way a chat-completions endpoint does.
func Envelope(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return body
}
