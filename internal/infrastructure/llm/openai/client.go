package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ovolkov/fund-insight/internal/infrastructure/resilience"
)

// Client wraps the OpenAI-compatible API for embeddings and chat
// completion. Calls go through a shared rate limiter and the resilience
// executor; the returned errors carry the domain kind for rate limits,
// bad credentials and transient faults.
type Client struct {
	api        *goopenai.Client
	genModel   string
	embedModel string
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Config struct {
	BaseURL    string
	APIKey     string
	GenModel   string
	EmbedModel string
	// RequestsPerMinute bounds calls across embeddings and generation.
	// Zero disables client-side limiting.
	RequestsPerMinute int
}

func New(cfg Config, executor *resilience.Executor) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &Client{
		api:        goopenai.NewClientWithConfig(apiCfg),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		limiter:    limiter,
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp goopenai.EmbeddingResponse
	err := e.client.call(ctx, "embed", func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts,
			Model: goopenai.EmbeddingModel(e.client.embedModel),
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client      *Client
	temperature float32
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client, temperature: 0.1}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var resp goopenai.ChatCompletionResponse
	err := g.client.call(ctx, "generate", func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.client.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       g.client.genModel,
			Temperature: g.temperature,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return callErr
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.executor.Execute(ctx, operation, fn, classifyAPIError)
	return wrapAPIError(operation, err)
}
