package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/reelgraph/internal/core/model"
)

const (
	maxNarrationTokens = 120
	maxNarrationLength = 300
)

var errNothingToNarrate = errors.New("candidate has no explanation path")

const narrationPrompt = `You write one short, friendly sentence explaining a movie recommendation.
The viewer liked %q. We recommend %q.
Connection found in our movie graph: %s
Template explanation: %q
Rephrase the explanation in one sentence. Mention only the connection given above; do not invent facts.
Reply with the sentence only.`

// Narrator rephrases path-backed template explanations with an LLM.
type Narrator struct {
	client  LLMClient
	timeout time.Duration
}

func NewNarrator(client LLMClient, timeout time.Duration) *Narrator {
	return &Narrator{client: client, timeout: timeout}
}

// Narrate returns the rephrased explanation. Candidates without a path are
// not narrated, so generic explanations never gain invented connections.
func (n *Narrator) Narrate(ctx context.Context, source model.Movie, c model.Candidate) (string, error) {
	if c.Path == nil {
		return "", errNothingToNarrate
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(narrationPrompt, source.Title, c.Title, describe(c.Path), c.Explanation)
	out, err := n.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to narrate explanation: %w", err)
	}
	return clean(out)
}

func describe(p *model.ExplanationPath) string {
	parts := make([]string, 0, len(p.Nodes))
	for _, node := range p.Nodes {
		parts = append(parts, fmt.Sprintf("%s %q", strings.ToLower(string(node.Kind)), node.Label))
	}
	return strings.Join(parts, " -> ")
}

// clean keeps the first non-empty line of a model reply without wrapping
// quotes.
func clean(s string) (string, error) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxNarrationLength {
			return "", fmt.Errorf("narration too long (%d bytes)", len(line))
		}
		return line, nil
	}
	return "", fmt.Errorf("empty narration")
}
