// Package openai adapts an OpenAI-compatible endpoint to the narrative
// Completer and to audio transcription.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/aretw0/capsule/pkg/narrative"
)

// Defaults for Config.
const (
	DefaultBaseURL            = "https://api.siliconflow.cn/v1"
	DefaultModel              = "deepseek-ai/DeepSeek-V3"
	DefaultTranscriptionModel = "FunAudioLLM/SenseVoiceSmall"
)

// ErrNoAPIKey is returned by NewClient without credentials.
var ErrNoAPIKey = errors.New("missing API key")

// Config configures the client. APIKey has no default.
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Logger             *slog.Logger

	// Breaker settings: the circuit opens after FailureThreshold
	// consecutive failures and stays open for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client talks to the remote LLM through a circuit breaker.
type Client struct {
	api     *goopenai.Client
	config  Config
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a client for the configured endpoint.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.TranscriptionModel == "" {
		config.TranscriptionModel = DefaultTranscriptionModel
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = time.Minute
	}

	apiConfig := goopenai.DefaultConfig(config.APIKey)
	apiConfig.BaseURL = config.BaseURL

	logger := config.Logger
	threshold := config.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation by the caller says nothing about the endpoint.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		api:     goopenai.NewClientWithConfig(apiConfig),
		config:  config,
		breaker: breaker,
	}, nil
}

// Model returns the chat model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Complete implements narrative.Completer.
func (c *Client) Complete(ctx context.Context, req narrative.Request) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       c.config.Model,
			Messages:    messages,
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.config.Logger.Debug("chat completion", "model", c.config.Model)
	return out.(string), nil
}

// Transcribe converts an audio file to text in deterministic mode
// (temperature 0).
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
			Model:       c.config.TranscriptionModel,
			FilePath:    path,
			Temperature: 0,
		})
		if err != nil {
			return nil, err
		}
		return resp.Text, nil
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return out.(string), nil
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

var _ narrative.Completer = (*Client)(nil)
