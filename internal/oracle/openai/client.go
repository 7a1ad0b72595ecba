// Package openai implements the reasoning oracle on OpenAI structured
// outputs: every request carries a strict JSON schema derived from the
// destination type, and the reply is validated against it before decoding.
package openai

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/oracle"
)

// DefaultModel supports structured outputs with strict schemas.
const DefaultModel = "gpt-4o-2024-08-06"

// Config holds OpenAI oracle configuration.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// DefaultConfig returns the settings the pipeline was tuned with.
func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		Temperature: 0.2,
		Timeout:     2 * time.Minute,
	}
}

// Client implements oracle.Oracle.
type Client struct {
	client *openai.Client
	cfg    Config
	logger zerolog.Logger
}

// New creates a client bound to apiKey.
func New(apiKey string, cfg Config) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai oracle: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	occ := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(occ),
		cfg:    cfg,
		logger: logging.WithComponent("oracle.openai"),
	}, nil
}

// Factory returns an oracle.Factory producing clients with cfg.
func Factory(cfg Config) oracle.Factory {
	return func(credential string) (oracle.Oracle, error) {
		return New(credential, cfg)
	}
}

// Complete implements oracle.Oracle.
func (c *Client) Complete(ctx context.Context, req oracle.Request, out any) error {
	schema, err := SchemaFor(out)
	if err != nil {
		return err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("schema", req.Name).Msg("OpenAI API call failed")
		return fmt.Errorf("openai %s: %w", req.Name, err)
	}

	c.logger.Debug().
		Str("schema", req.Name).
		Dur("latency", time.Since(start)).
		Int("promptTokens", resp.Usage.PromptTokens).
		Int("completionTokens", resp.Usage.CompletionTokens).
		Msg("OpenAI completion received")

	return decode(schema, req.Name, resp, out)
}

func decode(schema *jsonschema.Definition, name string, resp openai.ChatCompletionResponse, out any) error {
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%s: no choices: %w", name, oracle.ErrNoParseableResult)
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return fmt.Errorf("%s: %s: %w", name, msg.Refusal, oracle.ErrRefused)
	}
	if msg.Content == "" {
		return fmt.Errorf("%s: empty content: %w", name, oracle.ErrNoParseableResult)
	}
	if err := schema.Unmarshal(msg.Content, out); err != nil {
		return fmt.Errorf("%s: %v: %w", name, err, oracle.ErrNoParseableResult)
	}
	return nil
}

// SchemaFor derives the strict JSON schema for the struct out points to.
func SchemaFor(out any) (*jsonschema.Definition, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("openai oracle: destination must be a non-nil struct pointer, got %T", out)
	}
	schema, err := jsonschema.GenerateSchemaForType(rv.Elem().Interface())
	if err != nil {
		return nil, fmt.Errorf("openai oracle: derive schema for %T: %w", out, err)
	}
	return schema, nil
}
