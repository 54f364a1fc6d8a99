// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/siherrmann/dealgraph/core/llm"
)

// Reply is returned for requests whose system or user prompt contains Match.
type Reply struct {
	Match string
	Text  string
	Err   error
}

// Provider answers with the first matching reply, or Default otherwise.
// Every request is recorded.
type Provider struct {
	Replies []Reply
	Default Reply

	mu       sync.Mutex
	requests []llm.CompletionRequest
}

// NewProvider creates a provider answering every request with text.
func NewProvider(text string) *Provider {
	return &Provider{Default: Reply{Text: text}}
}

func (p *Provider) Name() string { return "llmtest" }

func (p *Provider) IsAvailable(ctx context.Context) bool { return true }

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := p.Default
	for _, r := range p.Replies {
		if strings.Contains(req.System, r.Match) || strings.Contains(req.Prompt, r.Match) {
			reply = r
			break
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.CompletionResponse{Text: reply.Text, Model: "llmtest"}, nil
}

// Requests returns the recorded requests in order.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.requests...)
}

// Calls returns the number of recorded requests.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
