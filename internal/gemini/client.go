// Package gemini provides a client for the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for categorization.
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout bounds a single categorization call.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotConfigured is returned when the client has no generator.
	ErrNotConfigured = errors.New("gemini client not initialized")
	// ErrAPICall marks failures of the remote call itself. These are the only
	// errors worth retrying.
	ErrAPICall = errors.New("gemini API call failed")
	// ErrInvalidResponse marks responses that could not be turned into a suggestion.
	ErrInvalidResponse = errors.New("invalid gemini response")
)

// ContentGenerator defines the interface for generating content via Gemini.
// This abstraction enables testing without making actual API calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// modelsAdapter wraps *genai.Models to implement ContentGenerator.
type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Options tunes the client. Zero values select the defaults.
type Options struct {
	Model   string
	Timeout time.Duration
}

// Client wraps the Gemini API client.
type Client struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
}

// NewClient creates a new Gemini client with the provided API key.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewClientWithGenerator(&modelsAdapter{models: client.Models}, opts), nil
}

// NewClientWithGenerator creates a Client with a custom ContentGenerator.
// This is primarily used for testing with mock generators.
func NewClientWithGenerator(generator ContentGenerator, opts Options) *Client {
	c := &Client{
		generator: generator,
		model:     opts.Model,
		timeout:   opts.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}
