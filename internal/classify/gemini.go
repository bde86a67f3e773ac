package classify

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"faturas/internal/core"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// temperature keeps suggestions stable for the same expense.
const temperature float32 = 0.3

// Gemini classifies expenses with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiOption adjusts the underlying client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPClient = c }
}

// NewGemini builds a client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Classify(ctx context.Context, description string, amount core.Money) (Suggestion, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt(description, amount)), generateConfig())
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Suggestion{}, ErrUnavailable
	}
	return parseSuggestion(resp.Candidates[0].Content.Parts[0].Text)
}

func prompt(description string, amount core.Money) string {
	return fmt.Sprintf("Analise esta despesa: %q no valor de R$ %s.", description, amount.String())
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      genai.Ptr(temperature),
	}
}

func responseSchema() *genai.Schema {
	cats := core.Categories()
	enum := make([]string, len(cats))
	for i, c := range cats {
		enum[i] = string(c)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {
				Type:        genai.TypeString,
				Enum:        enum,
				Description: "A categoria que melhor se ajusta à despesa.",
			},
			"tip": {
				Type:        genai.TypeString,
				Description: "Uma dica financeira muito curta ou comentário engraçado sobre esse gasto (máx 15 palavras).",
			},
		},
		Required: []string{"category", "tip"},
	}
}
