package attributes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gotourism_loader/internal/core/models"
)

// Decider accepts or rejects a batch of newly discovered attribute definitions.
type Decider interface {
	Decide(ctx context.Context, defs []models.AttributeDefinition) (bool, error)
}

type DeciderFunc func(ctx context.Context, defs []models.AttributeDefinition) (bool, error)

func (f DeciderFunc) Decide(ctx context.Context, defs []models.AttributeDefinition) (bool, error) {
	return f(ctx, defs)
}

// AutoAccept registers everything; used for unattended runs.
var AutoAccept Decider = DeciderFunc(func(context.Context, []models.AttributeDefinition) (bool, error) {
	return true, nil
})

var RejectAll Decider = DeciderFunc(func(context.Context, []models.AttributeDefinition) (bool, error) {
	return false, nil
})

// Prompt asks an operator on a terminal. Empty input, "y" and "yes" accept;
// end of input rejects.
type Prompt struct {
	out io.Writer

	mu sync.Mutex
	in *bufio.Reader
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Decide(ctx context.Context, defs []models.AttributeDefinition) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "DISCOVERED %d NEW ATTRIBUTES\n", len(defs))
	b.WriteString(strings.Repeat("=", 70) + "\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "  - %s\n", d.Code)
		fmt.Fprintf(&b, "    Type: %s\n", d.Description)
		fmt.Fprintf(&b, "    Label: %s\n", d.Label)
		if d.Facet {
			b.WriteString("    Facet: yes\n")
		}
	}
	b.WriteString("Add these attributes? [Y/n]: ")
	if _, err := io.WriteString(p.out, b.String()); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		if line == "" {
			return false, nil
		}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	}
	return false, nil
}
