package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dealhunter/dealhunter/internal/fault"
	"github.com/dealhunter/dealhunter/internal/llm"
	"github.com/dealhunter/dealhunter/internal/task"
)

// decomposition attempts: the initial call plus exactly one retry with an
// identical prompt. A systematically malformed model response will fail
// both attempts the same way; the caller owns any fallback beyond that.
const maxAttempts = 2

// Generator is the prompt client slice the orchestrator needs.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Orchestrator turns a free-text travel query into structured agent tasks
// by prompting a hosted generative model and parsing its JSON output.
type Orchestrator struct {
	client Generator
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Orchestrator over the given prompt client.
func New(client Generator) *Orchestrator {
	return &Orchestrator{
		client: client,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// NewWithClock creates an Orchestrator with a fixed clock (used by tests).
func NewWithClock(client Generator, now func() time.Time) *Orchestrator {
	o := New(client)
	o.now = now
	return o
}

// Decompose sanitizes the query, prompts the model, and parses the
// response into agent tasks. On any failure it retries the identical
// sequence once, with no backoff; a second failure yields a tagged error:
// TIMEOUT when every model in the fallback chain was unreachable on both
// attempts, HALLUCINATION otherwise. It never returns a nil slice without
// an error.
func (o *Orchestrator) Decompose(ctx context.Context, query string) ([]task.AgentTask, error) {
	system, user := BuildPrompt(Sanitize(query), o.now())

	var lastErr error
	unreachable := true
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tasks, err := o.attempt(ctx, system, user)
		if err == nil {
			return tasks, nil
		}
		lastErr = err
		if !errors.Is(err, llm.ErrUnavailable) {
			unreachable = false
		}
		o.logger.Warn("decomposition attempt failed", "attempt", attempt, "error", err)
	}

	if unreachable {
		return nil, fault.New(fault.Timeout, lastErr)
	}
	return nil, fault.New(fault.Hallucination, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, system, user string) ([]task.AgentTask, error) {
	raw, err := o.client.Generate(ctx, system, user)
	if err != nil {
		return nil, err
	}

	cleaned := stripCodeFences(raw)

	var tasks []task.AgentTask
	if err := json.Unmarshal([]byte(cleaned), &tasks); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}
	if tasks == nil {
		return nil, fmt.Errorf("model returned JSON null instead of an array")
	}
	return tasks, nil
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language label, from the model response.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		// First fence line is a language label such as "json".
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
