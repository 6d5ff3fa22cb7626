package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	genai "google.golang.org/genai"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// GeminiEngine adapts the official genai client to the generation engine
// port. It performs a single call per Invoke; retry policy lives with the
// callers, which know which failures are worth repeating.
type GeminiEngine struct {
	cli    *genai.Client
	model  string
	logger *slog.Logger
}

var _ ports.GenerationEngine = (*GeminiEngine)(nil)

// NewGeminiEngine builds a client for the Gemini API backend. The API key is
// passed explicitly so configuration stays the single source of credentials.
func NewGeminiEngine(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiEngine, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEngine{cli: cli, model: model, logger: logger}, nil
}

// Invoke sends one prompt and returns the model's text plus any tool calls
// it requested. Failures are wrapped in EngineError with a transience flag
// so callers can decide whether a retry makes sense.
func (g *GeminiEngine) Invoke(ctx context.Context, prompt string, tools []domain.ToolSpec) (domain.EngineResponse, error) {
	cfg := &genai.GenerateContentConfig{}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations(tools)}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return domain.EngineResponse{}, wrapEngineError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.EngineResponse{}, &domain.EngineError{
			Transient: true,
			Err:       errors.New("empty response from model"),
		}
	}

	var out domain.EngineResponse
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, domain.ToolInvocation{
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		}
	}
	out.Text = text.String()

	if g.logger != nil {
		g.logger.Debug("engine response", "model", g.model, "chars", len(out.Text), "tool_calls", len(out.ToolCalls))
	}
	return out, nil
}

// declarations maps tool specs to genai function declarations. Every
// parameter is declared as a string; the tool layer parses further.
func declarations(tools []domain.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := map[string]*genai.Schema{}
		for name, description := range tool.Parameters {
			properties[name] = &genai.Schema{Type: genai.TypeString, Description: description}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
			},
		})
	}
	return decls
}

func wrapEngineError(err error) error {
	transient := errors.Is(err, context.DeadlineExceeded)

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			transient = true
		}
	}

	return &domain.EngineError{Transient: transient, Err: err}
}
