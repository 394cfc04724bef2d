package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// mockCompleter implements ChatCompleter with a per-model response table.
type mockCompleter struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (m *mockCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls = append(m.calls, req.Model)
	if err, ok := m.errs[req.Model]; ok {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.responses[req.Model]}},
		},
	}, nil
}

func TestGenerate_FirstModelWins(t *testing.T) {
	mock := &mockCompleter{responses: map[string]string{"gpt-4o": "hello"}}
	c := NewWithCompleter(mock, []string{"gpt-4o", "gpt-4o-mini"})

	got, err := c.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Generate() = %q, want %q", got, "hello")
	}
	if len(mock.calls) != 1 {
		t.Errorf("calls = %v, want only the first model", mock.calls)
	}
}

func TestGenerate_FallsThroughToSecondModel(t *testing.T) {
	mock := &mockCompleter{
		responses: map[string]string{"gpt-4o": "", "gpt-4o-mini": "plan"},
	}
	c := NewWithCompleter(mock, []string{"gpt-4o", "gpt-4o-mini"})

	got, err := c.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "plan" {
		t.Errorf("Generate() = %q, want %q", got, "plan")
	}
	if len(mock.calls) != 2 {
		t.Errorf("calls = %v, want both models tried", mock.calls)
	}
}

func TestGenerate_AllTransportErrors(t *testing.T) {
	mock := &mockCompleter{
		errs: map[string]error{
			"gpt-4o":      fmt.Errorf("connection refused"),
			"gpt-4o-mini": fmt.Errorf("503"),
		},
	}
	c := NewWithCompleter(mock, []string{"gpt-4o", "gpt-4o-mini"})

	_, err := c.Generate(context.Background(), "sys", "user")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Generate() error = %v, want ErrUnavailable", err)
	}
}

func TestGenerate_AllEmptyText(t *testing.T) {
	mock := &mockCompleter{
		responses: map[string]string{"gpt-4o": "", "gpt-4o-mini": "   "},
	}
	c := NewWithCompleter(mock, []string{"gpt-4o", "gpt-4o-mini"})

	_, err := c.Generate(context.Background(), "sys", "user")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
	}
}

func TestGenerate_MixedErrorAndEmptyIsEmptyResponse(t *testing.T) {
	mock := &mockCompleter{
		responses: map[string]string{"gpt-4o-mini": ""},
		errs:      map[string]error{"gpt-4o": fmt.Errorf("timeout")},
	}
	c := NewWithCompleter(mock, []string{"gpt-4o", "gpt-4o-mini"})

	_, err := c.Generate(context.Background(), "sys", "user")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse when any model responded", err)
	}
}

func TestGenerate_NoModelsConfigured(t *testing.T) {
	c := NewWithCompleter(&mockCompleter{}, nil)

	_, err := c.Generate(context.Background(), "sys", "user")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Generate() error = %v, want ErrUnavailable", err)
	}
}
