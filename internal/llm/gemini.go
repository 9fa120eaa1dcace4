package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config holds Gemini client settings.
type Config struct {
	APIKey          string
	EmbedModel      string
	ChatModel       string
	Dimension       int
	Temperature     float32
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Client talks to the Gemini API for embeddings and text generation.
type Client struct {
	client *genai.Client
	cfg    Config
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &Client{client: client, cfg: cfg}, nil
}

// Embed generates an embedding vector for the given text. Single attempt,
// bounded by the embed timeout; callers decide how to handle failure.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.EmbedTimeout)
	defer cancel()

	outputDim := int32(c.cfg.Dimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := c.client.Models.EmbedContent(ctx, c.cfg.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != c.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.cfg.Dimension, len(embedding))
	}

	return embedding, nil
}

// EmbedQuery generates an embedding for a search query. Queries and documents
// share the same embedding space, so this is the same underlying call.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.Embed(ctx, text)
}

// Generate produces an answer for the request, bounded by the generate timeout.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.ChatModel, buildContents(req), config)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}

	answer := extractText(resp)
	if answer == "" {
		return "", fmt.Errorf("no response generated from chat model")
	}
	return answer, nil
}

// buildContents converts the history and final question into Gemini contents.
// Images ride on the final user turn as inline data parts.
func buildContents(req GenerateRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)

	for _, msg := range req.History {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Question)}
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

	return contents
}

// extractText concatenates text parts from the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
