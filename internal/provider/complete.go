package provider

import (
	"context"
	"strings"
)

// Complete sends a single user prompt and returns the answer text with any
// reasoning stripped.
func Complete(ctx context.Context, p Provider, system, prompt string, opts ChatOptions) (string, error) {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})

	ch, err := p.Chat(ctx, msgs, opts)
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	var streamErr error
	for chunk := range ch {
		if chunk.Error != nil && streamErr == nil {
			streamErr = chunk.Error
		}
		answer.WriteString(chunk.Delta)
	}
	if streamErr != nil {
		return "", streamErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := strings.TrimSpace(answer.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Completer binds a provider to fixed options so callers only pass prompts.
type Completer struct {
	p      Provider
	system string
	opts   ChatOptions
}

func NewCompleter(p Provider, system string, opts ChatOptions) *Completer {
	return &Completer{p: p, system: system, opts: opts}
}

func (c *Completer) Generate(ctx context.Context, prompt string) (string, error) {
	return Complete(ctx, c.p, c.system, prompt, c.opts)
}

// Provider returns the wrapped provider.
func (c *Completer) Provider() Provider { return c.p }
