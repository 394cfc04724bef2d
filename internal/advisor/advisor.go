// Package advisor implements the AI-assisted deal features: deal
// scoring, price pulse, itinerary generation, and packing lists. Every
// feature is a thin prompt-and-parse call that degrades to a neutral
// fallback payload when the model fails; advisor calls never surface an
// LLM error to the HTTP layer.
package advisor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Generator is the prompt client slice the advisor needs.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Advisor bundles the AI-assisted features around a shared prompt client.
type Advisor struct {
	client Generator
	logger *slog.Logger
}

func New(client Generator) *Advisor {
	return &Advisor{client: client, logger: slog.Default()}
}

const featureTimeout = 20 * time.Second

// generateJSON prompts the model and unmarshals its (possibly fenced)
// JSON response into dst.
func (a *Advisor) generateJSON(ctx context.Context, system, user string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, featureTimeout)
	defer cancel()

	raw, err := a.client.Generate(ctx, system, user)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(stripFences(raw)), dst)
}

// stripFences removes a surrounding markdown code fence, with or without
// a language label.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
