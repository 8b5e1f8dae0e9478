package companion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Service is the boundary to the external AI. It never returns errors or
// panics past itself; failures are reported through Result.
type Service interface {
	Embed(ctx context.Context, text string) Result[[]float32]
	Chat(ctx context.Context, input ChatInput) Result[*model.Presentation]
}

// ChatInput is the request for a presentation
type ChatInput struct {
	Query            string
	PatientContext   string
	ConversationType string
	// Memories are mandatory context. Scenes may only reference them.
	Memories []*model.Memory
}

const (
	defaultEmbedTimeout = 10 * time.Second
	defaultChatTimeout  = 30 * time.Second
)

// client implements Service over a gollem LLM client
type client struct {
	llmClient    gollem.LLMClient
	dimension    int
	embedTimeout time.Duration
	chatTimeout  time.Duration
	cache        *EmbeddingCache
}

var _ Service = &client{}

// Option is a functional option for client configuration
type Option func(*client)

func WithDimension(dim int) Option {
	return func(c *client) {
		c.dimension = dim
	}
}

func WithEmbedTimeout(d time.Duration) Option {
	return func(c *client) {
		c.embedTimeout = d
	}
}

func WithChatTimeout(d time.Duration) Option {
	return func(c *client) {
		c.chatTimeout = d
	}
}

// WithCache enables caching of query embeddings
func WithCache(cache *EmbeddingCache) Option {
	return func(c *client) {
		c.cache = cache
	}
}

// New creates a companion service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:    llmClient,
		dimension:    model.EmbeddingDimension,
		embedTimeout: defaultEmbedTimeout,
		chatTimeout:  defaultChatTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Embed(ctx context.Context, text string) Result[[]float32] {
	if c.cache != nil {
		if vec, found := c.cache.Get(text); found {
			return ok(vec)
		}
	}

	r := bounded(ctx, c.embedTimeout, func(ctx context.Context) ([]float32, error) {
		embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, []string{text})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate embedding")
		}
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return nil, goerr.Wrap(ErrMalformedResponse, "no embedding returned")
		}

		result := make([]float32, len(embeddings[0]))
		for i, v := range embeddings[0] {
			result[i] = float32(v)
		}
		return result, nil
	})

	if r.OK() && c.cache != nil {
		c.cache.Set(text, r.Value)
	}
	return r
}

func (c *client) Chat(ctx context.Context, input ChatInput) Result[*model.Presentation] {
	return bounded(ctx, c.chatTimeout, func(ctx context.Context) (*model.Presentation, error) {
		session, err := c.llmClient.NewSession(ctx,
			gollem.WithSessionContentType(gollem.ContentTypeJSON),
			gollem.WithSessionResponseSchema(buildResponseSchema()),
			gollem.WithSessionSystemPrompt(buildSystemPrompt()),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create LLM session")
		}

		resp, err := session.GenerateContent(ctx, gollem.Text(buildUserPrompt(input)))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate content from LLM")
		}
		if resp == nil || len(resp.Texts) == 0 {
			return nil, goerr.Wrap(ErrMalformedResponse, "empty LLM response")
		}

		return parsePresentation(resp.Texts[0], input.Memories)
	})
}

type llmResponse struct {
	ResponseType string     `json:"response_type"`
	Title        string     `json:"title"`
	Narrative    string     `json:"narrative"`
	Scenes       []llmScene `json:"scenes"`
}

type llmScene struct {
	MemoryID string `json:"memory_id"`
	Caption  string `json:"caption"`
}

// parsePresentation validates the structured output. Scenes referencing
// memories outside the context are dropped.
func parsePresentation(text string, memories []*model.Memory) (*model.Presentation, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, "failed to parse LLM response",
			goerr.V("response", text), goerr.V("error", err.Error()))
	}

	kind, err := types.ParsePresentationType(resp.ResponseType)
	if err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, "unknown response_type",
			goerr.V("response_type", resp.ResponseType))
	}

	known := make(map[model.MemoryID]bool, len(memories))
	for _, m := range memories {
		known[m.ID] = true
	}

	p := &model.Presentation{
		Type:      kind,
		Title:     resp.Title,
		Narrative: resp.Narrative,
	}
	for _, s := range resp.Scenes {
		id := model.MemoryID(s.MemoryID)
		if !known[id] {
			continue
		}
		p.Scenes = append(p.Scenes, model.Scene{MemoryID: id, Caption: s.Caption})
	}
	return p, nil
}
