package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxHTMLPeek bounds how much of a suspected HTML page is read for its title.
const maxHTMLPeek = 64 << 10

// OpenRouterClient implements Client against OpenRouter's OpenAI-compatible API
type OpenRouterClient struct {
	client *openai.Client
	config *Config
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(config *Config, apiKey string) (*OpenRouterClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultOpenRouterConfig()
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = config.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}

	headers := http.Header{}
	if config.Referer != "" {
		headers.Set("HTTP-Referer", config.Referer)
	}
	if config.Title != "" {
		headers.Set("X-Title", config.Title)
	}
	cfg.HTTPClient = &http.Client{
		Timeout: config.Timeout,
		Transport: &gatewayTransport{
			base:     http.DefaultTransport,
			headers:  headers,
			provider: ProviderOpenRouter,
		},
	}

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(cfg),
		config: config,
	}, nil
}

// GenerateContent generates free text using the specified model tier
func (c *OpenRouterClient) GenerateContent(ctx context.Context, prompt Prompt, tier ModelTier) (string, error) {
	return c.complete(ctx, prompt, tier, nil)
}

// GenerateJSON requests JSON-object output using the specified model tier
func (c *OpenRouterClient) GenerateJSON(ctx context.Context, prompt Prompt, tier ModelTier) (string, error) {
	text, err := c.complete(ctx, prompt, tier, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *OpenRouterClient) complete(ctx context.Context, prompt Prompt, tier ModelTier, format *openai.ChatCompletionResponseFormat) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          modelName,
		Messages:       messages,
		Temperature:    c.config.Temperature,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return text, nil
}

// GetModel returns the model name for a tier
func (c *OpenRouterClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *OpenRouterClient) Close() error {
	return nil
}

// gatewayTransport adds attribution headers and turns HTML pages into
// UpstreamGatewayError before the OpenAI decoder sees them.
type gatewayTransport struct {
	base     http.RoundTripper
	headers  http.Header
	provider Provider
}

func (t *gatewayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	peek, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLPeek))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	if LooksLikeHTML(resp.Header.Get("Content-Type"), peek) {
		_ = resp.Body.Close()
		return nil, NewUpstreamGatewayError(t.provider, resp.StatusCode, peek)
	}

	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), resp.Body), resp.Body}
	return resp, nil
}
