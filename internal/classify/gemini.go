package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"findex/internal/logging"
	"findex/internal/pipelineerror"
)

// AIBackend is a single request/response exchange with a generative model:
// a deterministic prompt in, raw model text out. Implementations must honor
// context cancellation.
type AIBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// GeminiBackend implements AIBackend against the Google Gemini API.
type GeminiBackend struct {
	model  *genai.GenerativeModel
	client *genai.Client
	logger logging.Logger
}

// NewGeminiBackend creates the Gemini client. The model runs with
// temperature zero so repeated identical prompts are reproducible modulo
// backend nondeterminism.
func NewGeminiBackend(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiBackend{
		model:  model,
		client: client,
		logger: logger,
	}, nil
}

// Name returns the backend name.
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Close releases the underlying API client.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

// Generate sends the prompt and returns the first candidate's text.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// backendFailure wraps a backend error in the pipeline's typed error so the
// fallback path can tell backend trouble from programmer error.
func backendFailure(description, backend string, err error) error {
	return &pipelineerror.ClassificationError{
		Description: description,
		Backend:     backend,
		Err:         err,
	}
}
